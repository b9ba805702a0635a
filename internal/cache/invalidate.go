package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const metaSuffix = ".meta.json"

// ClearDir removes the directory and all contents, then recreates it empty.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// cachedEntry is one meta/body pair found on disk.
type cachedEntry struct {
	base    string // path without suffix
	savedAt time.Time
	used    time.Time
	size    int64
}

func (e cachedEntry) remove() {
	_ = os.Remove(e.base + metaSuffix)
	_ = os.Remove(e.base + ".body")
}

// scanEntries lists entries in dir. Unreadable or malformed meta files are
// skipped rather than reported.
func scanEntries(dir string) ([]cachedEntry, error) {
	var out []cachedEntry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), metaSuffix) {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var meta HTTPEntry
		if err := json.Unmarshal(b, &meta); err != nil {
			return nil
		}
		e := cachedEntry{base: strings.TrimSuffix(path, metaSuffix), savedAt: meta.SavedAt}
		if info, err := d.Info(); err == nil {
			e.used = info.ModTime()
			e.size += info.Size()
		}
		if info, err := os.Stat(e.base + ".body"); err == nil {
			e.size += info.Size()
			if info.ModTime().After(e.used) {
				e.used = info.ModTime()
			}
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// PurgeHTTPCacheByAge removes entries whose SavedAt is older than maxAge and
// returns how many were removed.
func PurgeHTTPCacheByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	entries, err := scanEntries(dir)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	removed := 0
	for _, e := range entries {
		if now.Sub(e.savedAt) > maxAge {
			e.remove()
			removed++
		}
	}
	return removed, nil
}

// EnforceHTTPCacheLimits evicts least recently used entries until the cache
// holds at most maxCount entries and maxBytes bytes. A zero limit is ignored.
func EnforceHTTPCacheLimits(dir string, maxBytes int64, maxCount int) (int, error) {
	if maxBytes <= 0 && maxCount <= 0 {
		return 0, nil
	}
	entries, err := scanEntries(dir)
	if err != nil {
		return 0, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].used.Before(entries[j].used) })
	var total int64
	for _, e := range entries {
		total += e.size
	}
	removed := 0
	for len(entries) > 0 {
		overCount := maxCount > 0 && len(entries) > maxCount
		overBytes := maxBytes > 0 && total > maxBytes
		if !overCount && !overBytes {
			break
		}
		entries[0].remove()
		total -= entries[0].size
		entries = entries[1:]
		removed++
	}
	return removed, nil
}
