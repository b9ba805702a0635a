package app

import (
	"io"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/pagetext/internal/extract"
)

var (
	pdfHeadingRe = regexp.MustCompile(`^(#{1,6}) (.*)$`)
	pdfLinkRe    = regexp.MustCompile(`@(L\d+)\b`)
)

// writePDF lays out the extracted lines one per row. Headings are bold and
// sized by level; every @Lk token becomes a clickable link to its URL. This is
// a reading aid, not a reproduction of the page layout.
func writePDF(w io.Writer, res extract.Result) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; translate so accented text survives.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetCreator(Generator(), true)
	if res.Title != "" {
		pdf.SetTitle(res.Title, true)
	}
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	if res.Title != "" {
		pdf.SetFont("Helvetica", "B", 16)
		pdf.MultiCell(0, 8, tr(res.Title), "", "L", false)
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "", 11)
	}

	urls := make(map[string]string, len(res.Links))
	for _, l := range res.Links {
		urls[l.Ref] = l.Href
	}

	for _, line := range res.Lines {
		s := line.Text
		if strings.TrimSpace(s) == "" {
			pdf.Ln(5)
			continue
		}
		if m := pdfHeadingRe.FindStringSubmatch(s); m != nil {
			size := 15.0 - float64(len(m[1]))
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "B", size)
			writeLinkedText(pdf, tr, m[2], urls, 7)
			pdf.Ln(8)
			pdf.SetFont("Helvetica", "", 11)
			continue
		}
		writeLinkedText(pdf, tr, s, urls, 5)
		pdf.Ln(6)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func writeLinkedText(pdf *gofpdf.Fpdf, tr func(string) string, s string, urls map[string]string, h float64) {
	pos := 0
	for _, m := range pdfLinkRe.FindAllStringSubmatchIndex(s, -1) {
		// m: [fullStart, fullEnd, refStart, refEnd]
		if m[0] > pos {
			pdf.Write(h, tr(s[pos:m[0]]))
		}
		token := s[m[0]:m[1]]
		if url, ok := urls[s[m[2]:m[3]]]; ok {
			pdf.WriteLinkString(h, token, url)
		} else {
			pdf.Write(h, token)
		}
		pos = m[1]
	}
	if pos < len(s) {
		pdf.Write(h, tr(s[pos:]))
	}
}
