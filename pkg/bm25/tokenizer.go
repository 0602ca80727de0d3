package bm25

import "strings"

// tokenize implements the model's tokenizer rule: lower-case the input,
// replace any character outside [A-Za-z0-9_] with a space, split on runs
// of whitespace, then drop tokens shorter than minTermLen or in
// stopWordSet. Unlike the teacher's code-aware tokenizer, this never
// splits on camelCase or snake_case boundaries.
func (m *Model) tokenize(text string) []string {
	lowered := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if isWordChar(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < m.minTermLen {
			continue
		}
		if _, stop := m.stopWordSet[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func isWordChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_':
		return true
	default:
		return false
	}
}
