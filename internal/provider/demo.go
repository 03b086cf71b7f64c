package provider

import (
	"context"
	"fmt"
	"strings"
)

// demo synthesizes a deterministic templated answer without touching the
// network. It is the default backend and the zero-dependency fallback for
// environments with no API keys.
type demo struct{}

func (d *demo) Name() string { return "demo" }

func (d *demo) Generate(_ context.Context, req Request) (string, error) {
	var list strings.Builder
	for _, doc := range req.Documents {
		fmt.Fprintf(&list, "• %s (%s)\n", doc.Name, doc.Type)
	}
	plural := "s"
	if len(req.Documents) == 1 {
		plural = ""
	}
	return fmt.Sprintf(`**Demo Mode Response**

Thank you for your question: %q

I would analyze the following documents to provide insights:
%s
**Sample Analysis:**
Based on the %d document%s provided, here are some key points I would typically identify:

• **Document Summary**: I would extract the main themes and topics from each document
• **Key Insights**: Important findings, recommendations, or action items would be highlighted
• **Cross-Document Analysis**: Connections and patterns across multiple documents would be identified
• **Actionable Items**: Specific next steps or recommendations would be provided

**Note**: This is a demo response. To get actual AI-powered insights, configure one of the supported providers:
- OpenAI or Azure OpenAI
- Google Gemini
- Anthropic Claude
- Local models via Ollama

See the README for setup instructions.`,
		req.Query, list.String(), len(req.Documents), plural), nil
}
