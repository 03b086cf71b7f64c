package extract

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
)

// Word file information block: magic and the flag bits extraction cares about.
const (
	fibMagic      = 0xA5EC
	fibFEncrypted = 0x0100
	fibFExtChar   = 0x1000
)

// fromDoc extracts text from a legacy binary Word file. The container is an
// OLE compound file; the information block at the start of the WordDocument
// stream bounds the text run and says whether it is CP-1252 or UTF-16LE.
// Encrypted files fail with ErrEncrypted before any text is read.
func fromDoc(data []byte) (string, error) {
	cf, err := openCompoundFile(data)
	if err != nil {
		return "", fmt.Errorf("open doc container: %w", err)
	}
	stream, err := cf.stream("WordDocument")
	if err != nil {
		return "", fmt.Errorf("doc: %w", err)
	}
	if len(stream) < 0x20 {
		return "", fmt.Errorf("doc: WordDocument stream truncated")
	}
	if binary.LittleEndian.Uint16(stream[0:2]) != fibMagic {
		return "", fmt.Errorf("doc: not a Word binary file")
	}
	flags := binary.LittleEndian.Uint16(stream[0x0A:0x0C])
	if flags&fibFEncrypted != 0 {
		return "", ErrEncrypted
	}
	fcMin := binary.LittleEndian.Uint32(stream[0x18:0x1C])
	fcMac := binary.LittleEndian.Uint32(stream[0x1C:0x20])
	if fcMac <= fcMin {
		return "", nil
	}
	if int64(fcMac) > int64(len(stream)) {
		return "", fmt.Errorf("doc: text run out of bounds")
	}

	raw := stream[fcMin:fcMac]
	var decoded []byte
	if flags&fibFExtChar != 0 {
		dec := xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM).NewDecoder()
		decoded, err = dec.Bytes(raw)
		if err != nil {
			return "", fmt.Errorf("doc: decode utf-16 text: %w", err)
		}
	} else {
		decoded, err = charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return "", fmt.Errorf("doc: decode cp1252 text: %w", err)
		}
	}
	return docControlToText(string(decoded)), nil
}

// docControlToText maps Word's in-band control characters onto plain-text
// equivalents before normalization strips what remains: cell and row marks
// and line/page breaks become newlines, non-breaking hyphens become hyphens,
// soft hyphens disappear. Paragraph marks are carriage returns and are
// already handled by the normalizer.
func docControlToText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case 0x07, 0x0b, 0x0c:
			b.WriteByte('\n')
		case 0x1e:
			b.WriteByte('-')
		case 0x1f:
			// soft hyphen
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
