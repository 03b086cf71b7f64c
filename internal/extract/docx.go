package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// fromDocx reads word/document.xml out of the OOXML zip container and walks
// its paragraphs. Paragraphs become lines; headings get a blank line after
// them so the normalizer keeps them visually separated.
func fromDocx(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx container: %w", err)
	}

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("docx: word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var (
		out         strings.Builder
		current     strings.Builder
		inParagraph bool
		inRunText   bool
		style       string
	)
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "p":
				inParagraph = true
				current.Reset()
				style = ""
			case t.Name.Local == "pStyle" && inParagraph:
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						style = attr.Value
					}
				}
			case t.Name.Local == "t" && inParagraph:
				inRunText = true
			case t.Name.Local == "tab" && inParagraph:
				current.WriteByte('\t')
			case t.Name.Local == "br" && inParagraph:
				current.WriteByte('\n')
			}
		case xml.CharData:
			// Only <w:t> runs hold document text; other character data is
			// formatting noise.
			if inRunText {
				current.Write(t)
			}
		case xml.EndElement:
			switch {
			case t.Name.Local == "t":
				inRunText = false
			case t.Name.Local == "p" && inParagraph:
				inParagraph = false
				text := strings.TrimSpace(current.String())
				if text == "" {
					continue
				}
				out.WriteString(text)
				out.WriteByte('\n')
				if docxHeadingLevel(style) > 0 {
					out.WriteByte('\n')
				}
			}
		}
	}
	return out.String(), nil
}

// docxHeadingLevel extracts the heading level from a paragraph style name,
// e.g. "Heading1" → 1, "Title" → 1. Returns 0 for body styles.
func docxHeadingLevel(style string) int {
	lower := strings.ToLower(style)
	if lower == "title" {
		return 1
	}
	if lower == "subtitle" {
		return 2
	}
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if strings.HasPrefix(lower, prefix) {
			rest := lower[len(prefix):]
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}
