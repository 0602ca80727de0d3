package chunk

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// parseTree parses source with the given grammar and returns its root node.
// Returns an error if the grammar fails to produce a tree at all (distinct
// from a tree that merely contains syntax-error nodes, which ast chunking
// tolerates).
func parseTree(ctx context.Context, lang *sitter.Language, source []byte) (*sitter.Node, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("chunk: parsing source: %w", err)
	}
	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("chunk: grammar produced no root node")
	}
	return root, nil
}
