package vectorstore

import (
	"fmt"
	"strings"

	appErrors "github.com/aman-cerp/codesearch/internal/errors"
)

// Filter is a parsed instance of the filter expression grammar emitted to
// VectorStore.query (spec §6):
//
//	expr := eq | in
//	eq   := IDENT "==" STRING_LITERAL
//	in   := IDENT "in" "[" STRING_LITERAL ("," STRING_LITERAL)* "]"
type Filter struct {
	Field  string
	Op     string // "==" or "in"
	Values []string
}

// ParseFilter parses expr per the grammar above. An empty expr yields a nil
// Filter (matches everything). A malformed expression yields an
// UnsupportedFilter error, matching the recovery spec §4.10 calls for.
func ParseFilter(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	if idx := strings.Index(expr, "=="); idx >= 0 {
		field := strings.TrimSpace(expr[:idx])
		value, err := parseStringLiteral(strings.TrimSpace(expr[idx+2:]))
		if err != nil || field == "" {
			return nil, unsupportedFilter(expr)
		}
		return &Filter{Field: field, Op: "==", Values: []string{value}}, nil
	}

	if idx := strings.Index(expr, " in "); idx >= 0 {
		field := strings.TrimSpace(expr[:idx])
		values, err := parseStringList(strings.TrimSpace(expr[idx+len(" in "):]))
		if err != nil || field == "" {
			return nil, unsupportedFilter(expr)
		}
		return &Filter{Field: field, Op: "in", Values: values}, nil
	}

	return nil, unsupportedFilter(expr)
}

func unsupportedFilter(expr string) error {
	return appErrors.New(appErrors.KindUnsupportedFilter,
		fmt.Sprintf("vectorstore: unrecognised filter expression: %q", expr))
}

func parseStringLiteral(s string) (string, error) {
	if len(s) < 2 {
		return "", fmt.Errorf("filter: not a string literal: %q", s)
	}
	quote := s[0]
	if (quote != '\'' && quote != '"') || s[len(s)-1] != quote {
		return "", fmt.Errorf("filter: not a quoted string literal: %q", s)
	}
	return s[1 : len(s)-1], nil
}

func parseStringList(s string) ([]string, error) {
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("filter: not a list literal: %q", s)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil, fmt.Errorf("filter: empty list literal")
	}
	parts := strings.Split(inner, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		v, err := parseStringLiteral(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// fieldValue extracts the value of one of the known metadata fields (spec
// §6's per-document metadata) from a Document for filter evaluation.
func fieldValue(doc Document, field string) (string, bool) {
	switch field {
	case "id":
		return doc.ID, true
	case "relativePath", "relative_path":
		return doc.RelativePath, true
	case "fileExtension", "file_extension":
		return doc.FileExtension, true
	default:
		return "", false
	}
}

// Matches reports whether doc satisfies f. A nil Filter matches everything.
func (f *Filter) Matches(doc Document) bool {
	if f == nil {
		return true
	}
	val, ok := fieldValue(doc, f.Field)
	if !ok {
		return false
	}
	switch f.Op {
	case "==":
		return val == f.Values[0]
	case "in":
		for _, v := range f.Values {
			if val == v {
				return true
			}
		}
		return false
	default:
		return false
	}
}
