package engine

import (
	"strings"

	"txcopilot/internal/retrieval"
)

// RefusalAnswer is the exact sentence returned when the evidence cannot
// support an answer. Verbatim by contract; downstream consumers match on it.
const RefusalAnswer = "Information not available in the provided data."

const systemPrompt = `You are a banking assistant specialized in TRANSACTIONS ONLY.
Rules:
1. Use ONLY the provided transaction context or tool results.
2. Prefer calling tools for math/filters; do not guess.
3. If info is missing, answer exactly: "` + RefusalAnswer + `"
4. Respond in STRICT JSON with keys: answer (string), reasoning (string), sources (string[] of transaction IDs used).`

// renderUserPrompt lays out the question over its evidence rows, one packed
// record per line prefixed with its id.
func renderUserPrompt(query string, evidence []retrieval.Candidate, accountRows []string) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\nContext (transactions only):\n")
	for _, c := range evidence {
		b.WriteString("[")
		b.WriteString(c.ID)
		b.WriteString("] ")
		b.WriteString(c.Text)
		b.WriteString("\n")
	}
	if len(accountRows) > 0 {
		b.WriteString("Account snapshots (newest lastUpdatedDate is authoritative):\n")
		for _, row := range accountRows {
			b.WriteString(row)
			b.WriteString("\n")
		}
	}
	b.WriteString("Reply in STRICT JSON with keys: answer, reasoning, sources.")
	return b.String()
}
