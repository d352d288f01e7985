package llm

import (
	"strings"
)

// BuildCategorizePrompt asks for exactly one label from the closed set.
func BuildCategorizePrompt(description string, labels []string) string {
	var b strings.Builder
	b.WriteString("Categorize this supermarket product into one category:\n")
	b.WriteString("[")
	b.WriteString(strings.Join(labels, ", "))
	b.WriteString("]\n\n")
	b.WriteString("Product: \"")
	b.WriteString(description)
	b.WriteString("\"\n\n")
	b.WriteString("ONLY return the category name.\n")
	return b.String()
}

// BuildSummaryPrompt lays out the serialized totals and the narrative brief.
func BuildSummaryPrompt(req SummaryRequest) string {
	parts := []string{
		"Here is the consolidated summary of all invoices:",
		"",
		"Monthly Totals:",
		req.MonthlyJSON,
		"",
		"Category Totals:",
		req.CategoryJSON,
		"",
		"Provider Totals:",
		req.ProviderJSON,
		"",
		"Generate an executive summary.",
		"Highlight spending trends, patterns, anomalies, and optimization opportunities.",
		"Be clear, concise, and professional.",
	}
	return strings.Join(parts, "\n") + "\n"
}

// CategorySystemPrompt is used by chat-style backends that accept a system message.
func CategorySystemPrompt(labels []string) string {
	return "You classify supermarket receipt lines. " +
		"Return ONLY JSON of the form {\"category\": \"<label>\"}. " +
		"The label MUST be exactly one of: " + strings.Join(labels, ", ") + ". " +
		"If uncertain, choose 'Other'."
}
