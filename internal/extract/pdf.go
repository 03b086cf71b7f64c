package extract

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// fromPDF extracts text from a PDF in page order using pdfcpu. Encrypted
// documents fail with ErrEncrypted before any text is produced.
func fromPDF(data []byte) (string, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		if isEncryptedPDF(err) {
			return "", ErrEncrypted
		}
		return "", fmt.Errorf("read pdf: %w", err)
	}

	var b strings.Builder
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pageText := pdfPageText(ctx, pageNr)
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}

// isEncryptedPDF classifies read failures caused by encryption. pdfcpu reports
// missing or wrong passwords as plain errors, so the text is the only signal.
func isEncryptedPDF(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypt")
}

// pdfPageText pulls one page's decoded content stream and parses its text
// showing operators.
func pdfPageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}

var (
	// pdfShowTextRe matches a string literal followed by Tj or the ' operator.
	pdfShowTextRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*(?:Tj|')`)
	// pdfShowArrayRe matches array-based showing: [(a) -120 (b)] TJ.
	pdfShowArrayRe = regexp.MustCompile(`\[((?:[^\]\\]|\\.)*)\]\s*TJ`)
	// pdfStringRe matches the string literals inside a TJ array.
	pdfStringRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
)

// textFromContentStream collects the string operands of Tj, ' and TJ in
// stream order. Strings containing balanced unescaped parentheses are not
// handled; writers escape them in practice.
func textFromContentStream(data []byte) string {
	type span struct {
		start int
		text  string
	}
	var spans []span
	for _, loc := range pdfShowTextRe.FindAllSubmatchIndex(data, -1) {
		spans = append(spans, span{start: loc[0], text: decodePDFString(data[loc[2]:loc[3]])})
	}
	for _, loc := range pdfShowArrayRe.FindAllSubmatchIndex(data, -1) {
		inner := data[loc[2]:loc[3]]
		var parts []string
		for _, m := range pdfStringRe.FindAllSubmatch(inner, -1) {
			parts = append(parts, decodePDFString(m[1]))
		}
		spans = append(spans, span{start: loc[0], text: strings.Join(parts, "")})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var sb strings.Builder
	for _, sp := range spans {
		if sp.text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(sp.text)
	}
	return sb.String()
}

// decodePDFString resolves the escape sequences of a PDF literal string,
// including octal escapes like \050.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}
