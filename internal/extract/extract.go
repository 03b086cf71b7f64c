package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hyperifyio/docinsight/internal/normalize"
)

// Result is the outcome of extracting one document: cleaned text plus the
// metadata the store keeps alongside it.
type Result struct {
	Text string
	Meta Metadata
}

// Metadata describes a document without its content.
type Metadata struct {
	Extension string
	TypeLabel string
	Size      int64
}

var (
	// ErrUnsupportedFormat indicates a file extension outside the supported set.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrEncrypted indicates an encrypted document. No partial text is returned.
	ErrEncrypted = errors.New("document is encrypted")
	// ErrEmptyContent indicates extraction yielded no usable text.
	ErrEmptyContent = errors.New("document contains no extractable text")
)

// Extract converts a raw document into cleaned plain text. Dispatch is by the
// file name's extension only; the bytes are never sniffed. The returned text
// has passed normalize.Normalize and is guaranteed non-empty. Input bytes are
// never modified.
func Extract(data []byte, name string) (Result, error) {
	meta := MetadataFor(name, int64(len(data)))
	var (
		text string
		err  error
	)
	switch meta.Extension {
	case ".pdf":
		text, err = fromPDF(data)
	case ".doc":
		text, err = fromDoc(data)
	case ".docx":
		text, err = fromDocx(data)
	case ".txt":
		text = string(data)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, meta.Extension)
	}
	if err != nil {
		return Result{}, err
	}
	cleaned := normalize.Normalize(text)
	if cleaned == "" {
		return Result{}, ErrEmptyContent
	}
	return Result{Text: cleaned, Meta: meta}, nil
}

// Supported reports whether a file name's extension has an extraction path.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".doc", ".docx", ".txt":
		return true
	}
	return false
}

// MetadataFor derives storage metadata from a file name and byte size.
func MetadataFor(name string, size int64) Metadata {
	ext := strings.ToLower(filepath.Ext(name))
	return Metadata{Extension: ext, TypeLabel: TypeLabel(ext), Size: size}
}

// TypeLabel maps a lower-cased extension to a human-readable document type.
func TypeLabel(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "PDF Document"
	case ".doc":
		return "Word Document (Legacy)"
	case ".docx":
		return "Word Document"
	case ".txt":
		return "Text Document"
	default:
		return "Unknown"
	}
}
