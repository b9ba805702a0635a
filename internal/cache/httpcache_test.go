package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHTTPCache_SaveLoad(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	ctx := context.Background()
	entry := HTTPEntry{URL: "https://a.com/x", FinalURL: "https://a.com/y", ContentType: "text/html", ETag: `"e1"`}
	if err := c.Save(ctx, entry, []byte("<p>hi</p>")); err != nil {
		t.Fatalf("save: %v", err)
	}
	meta, err := c.LoadMeta(ctx, entry.URL)
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if meta.FinalURL != "https://a.com/y" || meta.ETag != `"e1"` || meta.SavedAt.IsZero() {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	body, err := c.LoadBody(ctx, entry.URL)
	if err != nil || string(body) != "<p>hi</p>" {
		t.Fatalf("load body: %q %v", body, err)
	}
	if _, err := c.LoadMeta(ctx, "https://a.com/missing"); err == nil {
		t.Fatalf("expected miss")
	}
}

func TestHTTPCache_NoDir(t *testing.T) {
	var c *HTTPCache
	if _, err := c.LoadMeta(context.Background(), "u"); err == nil {
		t.Fatalf("expected error for nil cache")
	}
}

func TestHTTPCache_LRUEnforcement_Count(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	urls := []string{"https://a.com/1", "https://a.com/2", "https://a.com/3"}
	for i, u := range urls {
		if err := c.Save(context.Background(), HTTPEntry{URL: u, ContentType: "text/html"}, []byte(fmt.Sprintf("body-%d", i))); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	// Touch the first to make the second the least recently used.
	if _, err := c.LoadBody(context.Background(), urls[0]); err != nil {
		t.Fatalf("touch body: %v", err)
	}
	removed, err := EnforceHTTPCacheLimits(dir, 0, 2)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := c.LoadBody(context.Background(), urls[1]); err == nil {
		t.Fatalf("expected least recently used entry evicted")
	}
	if _, err := c.LoadBody(context.Background(), urls[0]); err != nil {
		t.Fatalf("expected touched entry kept: %v", err)
	}
}

func TestHTTPCache_LRUEnforcement_Bytes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	if err := c.Save(context.Background(), HTTPEntry{URL: "https://b.com/1"}, []byte("1111111111")); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := c.Save(context.Background(), HTTPEntry{URL: "https://b.com/2"}, []byte("22")); err != nil {
		t.Fatalf("save 2: %v", err)
	}
	removed, err := EnforceHTTPCacheLimits(dir, 5, 0)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if removed < 1 {
		t.Fatalf("expected at least 1 removal, got %d", removed)
	}
}

func TestPurgeHTTPCacheByAge(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	if err := c.Save(context.Background(), HTTPEntry{URL: "https://c.com/new"}, []byte("n")); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Hand-write an old entry.
	old := HTTPEntry{URL: "https://c.com/old", SavedAt: time.Now().Add(-48 * time.Hour)}
	key := c.key(old.URL)
	data := []byte(fmt.Sprintf(`{"url":%q,"saved_at":%q}`, old.URL, old.SavedAt.UTC().Format(time.RFC3339Nano)))
	if err := os.WriteFile(filepath.Join(dir, key+".meta.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, key+".body"), []byte("o"), 0o644); err != nil {
		t.Fatal(err)
	}
	removed, err := PurgeHTTPCacheByAge(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, key+".body")); !os.IsNotExist(err) {
		t.Fatalf("expected body removed")
	}
	if n, _ := PurgeHTTPCacheByAge(dir, 0); n != 0 {
		t.Fatalf("zero age must be a no-op")
	}
}

func TestClearDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "c")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "x.body"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ClearDir(dir); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty dir, got %v %v", entries, err)
	}
	if err := ClearDir("  "); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}
