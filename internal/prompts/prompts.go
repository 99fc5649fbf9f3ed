// Package prompts holds the embedded LLM prompt templates.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed summary_system.md
var summarySystemPrompt string

//go:embed summary_schema.md
var summarySchemaPromptTemplate string

//go:embed summary_freetext.md
var summaryFreeTextPromptTemplate string

// SummarySystemPrompt is the system message sent with every summary request.
func SummarySystemPrompt() string {
	return strings.TrimSpace(summarySystemPrompt)
}

// BuildSchemaSummaryPrompt asks for a JSON artifact.
func BuildSchemaSummaryPrompt(messages []string) string {
	return fmt.Sprintf(strings.TrimSpace(summarySchemaPromptTemplate), NumberedList(messages))
}

// BuildFreeTextSummaryPrompt asks for Name:, Description: and Tags: lines.
func BuildFreeTextSummaryPrompt(messages []string) string {
	return fmt.Sprintf(strings.TrimSpace(summaryFreeTextPromptTemplate), NumberedList(messages))
}

// NumberedList renders messages as "1. ...", one per line. Multi-line
// messages are indented under their number.
func NumberedList(messages []string) string {
	var sb strings.Builder
	for i, m := range messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		m = strings.TrimSpace(m)
		m = strings.ReplaceAll(m, "\n", "\n   ")
		fmt.Fprintf(&sb, "%d. %s", i+1, m)
	}
	return sb.String()
}
