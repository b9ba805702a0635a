package extract

import (
	"strings"
	"testing"

	"github.com/hyperifyio/pagetext/internal/dom"
)

// Benchmark Extract on representative HTML sizes and structures. Parsing is
// outside the timed loop; the adapter's caches are warm after the first run.
func BenchmarkExtract(b *testing.B) {
	small := mustParse(b, "<html><head><title>t</title></head><body><main><p>a</p></main></body></html>")
	medium := mustParse(b, makeHTML(50, 60))
	large := mustParse(b, makeHTML(200, 200))
	opts := DefaultOptions()

	b.Run("small", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = Extract(small, opts)
		}
	})
	b.Run("medium", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = Extract(medium, opts)
		}
	})
	b.Run("large", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = Extract(large, opts)
		}
	})
}

func mustParse(b *testing.B, src string) *dom.HTMLDocument {
	doc, err := dom.ParseString(src, "https://example.com/")
	if err != nil {
		b.Fatalf("parse: %v", err)
	}
	return doc
}

func makeHTML(paras int, itemsPerList int) string {
	builder := new(strings.Builder)
	builder.WriteString("<html><head><title>demo</title></head><body><nav><a href=\"/\">Home</a></nav><main>")
	for i := 0; i < paras; i++ {
		builder.WriteString("<h2>Heading</h2><p>")
		builder.WriteString(sampleText)
		builder.WriteString("</p>")
	}
	builder.WriteString("<div><button>Red</button><button>Green</button><button>Blue</button></div><ul>")
	for i := 0; i < itemsPerList; i++ {
		builder.WriteString("<li><a href=\"/item\">")
		builder.WriteString(sampleText)
		builder.WriteString("</a></li>")
	}
	builder.WriteString("</ul></main></body></html>")
	return builder.String()
}

const sampleText = "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua."
