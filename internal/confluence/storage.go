package confluence

import (
    "strings"

    "golang.org/x/net/html"

    "github.com/hyperifyio/docinsight/internal/normalize"
)

// StripMarkup renders Confluence storage-format markup down to plain text.
// The storage format is XHTML-shaped, so it goes through the HTML parser:
// tags drop away, entities decode, and block-level elements turn into line
// breaks so paragraph structure survives normalization.
func StripMarkup(markup string) string {
    if strings.TrimSpace(markup) == "" {
        return ""
    }
    node, err := html.Parse(strings.NewReader(markup))
    if err != nil || node == nil {
        return ""
    }
    var b strings.Builder
    collectText(&b, node)
    return normalize.Normalize(foldLines(b.String()))
}

func collectText(b *strings.Builder, n *html.Node) {
    if n.Type == html.ElementNode {
        name := strings.ToLower(n.Data)
        switch name {
        case "script", "style":
            return
        case "br", "hr":
            b.WriteString("\n")
        case "p", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote":
            // Newline before block starts to keep them separated
            b.WriteString("\n")
        case "ul", "ol", "table":
            b.WriteString("\n")
        }
    }

    if n.Type == html.TextNode {
        b.WriteString(n.Data)
    }

    for c := n.FirstChild; c != nil; c = c.NextSibling {
        collectText(b, c)
    }

    if n.Type == html.ElementNode {
        switch strings.ToLower(n.Data) {
        case "p", "h1", "h2", "h3", "h4", "h5", "h6":
            b.WriteString("\n\n")
        case "li", "tr", "blockquote":
            // List items and table rows stay on adjacent lines
            b.WriteString("\n")
        case "td", "th":
            // Keep cell texts apart once the row collapses to one line
            b.WriteString(" ")
        }
    }
}

// foldLines trims every line and keeps at most one consecutive blank, so
// indentation between markup tags does not survive as content.
func foldLines(s string) string {
    lines := strings.Split(s, "\n")
    out := make([]string, 0, len(lines))
    for _, line := range lines {
        trimmed := strings.TrimSpace(line)
        if trimmed == "" {
            if len(out) > 0 && out[len(out)-1] == "" {
                continue
            }
            out = append(out, "")
            continue
        }
        out = append(out, trimmed)
    }
    return strings.Join(out, "\n")
}
