package engine

import "encoding/json"

// findJSONCandidates scans s for top-level JSON object candidates using a
// byte-level state machine that tracks brace depth and string escaping.
// Iterating bytes is safe for the ASCII delimiters because UTF-8 never emits
// them inside multi-byte sequences.
func findJSONCandidates(s string) []string {
	var candidates []string
	var depth int
	start := -1
	var inString, escape bool

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}
		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}
		if b == '"' {
			inString = true
			continue
		}

		if b == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if b == '}' {
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return candidates
}

// modelResult is the strict output shape plus the optional numeric claim the
// verifier checks against the cited rows.
type modelResult struct {
	Answer    string   `json:"answer"`
	Reasoning string   `json:"reasoning"`
	Sources   []string `json:"sources"`
	SumGuess  *float64 `json:"sum_guess"`
}

// parseResult extracts the strict {answer, reasoning, sources} object from
// model output, tolerating markdown fences and surrounding prose. The first
// candidate that decodes with an answer wins. The second return value is the
// model's declared total, when it made one.
func parseResult(raw string) (*Result, *float64, bool) {
	for _, candidate := range findJSONCandidates(raw) {
		var mr modelResult
		if err := json.Unmarshal([]byte(candidate), &mr); err != nil {
			continue
		}
		if mr.Answer == "" {
			continue
		}
		if mr.Sources == nil {
			mr.Sources = []string{}
		}
		return &Result{
			Answer:    mr.Answer,
			Reasoning: mr.Reasoning,
			Sources:   mr.Sources,
		}, mr.SumGuess, true
	}
	return nil, nil, false
}
