package chunk

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
)

// segment is one top-level chunk candidate before the greedy small-sibling
// merge pass: either a splittable declaration node or a run of module-level
// statements grouped into a synthetic chunk.
type segment struct {
	span textSpan
	kind string
}

// chunkAST applies cfg's grammar to file and splits it at declaration
// boundaries, per spec §4.2.1.
func chunkAST(ctx context.Context, cfg *LanguageConfig, lang *sitter.Language, file *FileInput, opts Options) ([]Unit, error) {
	source := normalizeNewlines(string(file.Content))
	srcBytes := []byte(source)

	root, err := parseTree(ctx, lang, srcBytes)
	if err != nil {
		return nil, err
	}

	segments := topLevelSegments(root, cfg, srcBytes, opts.MaxChunkChars)
	segments = mergeSmallSegments(segments, opts.MinChunkChars, opts.MaxChunkChars)

	chunks := make([]Unit, 0, len(segments))
	for _, seg := range segments {
		if seg.span.End <= seg.span.Start {
			continue
		}
		chunks = append(chunks, Unit{
			FilePath:  file.Path,
			Content:   source[seg.span.Start:seg.span.End],
			Language:  cfg.Name,
			NodeKind:  seg.kind,
			StartLine: lineAt(source, seg.span.Start),
			EndLine:   lineAt(source, max(seg.span.Start, seg.span.End-1)),
		})
	}
	return chunks, nil
}

// topLevelSegments walks root's direct children, producing one segment per
// splittable declaration (recursively subdivided if it exceeds
// maxChunkChars) and one segment per maximal run of non-splittable
// siblings in between (the "module-level statements" synthetic chunk).
func topLevelSegments(root *sitter.Node, cfg *LanguageConfig, source []byte, maxChunkChars int) []segment {
	var out []segment
	runStart := -1
	var runEnd int

	flushRun := func() {
		if runStart < 0 {
			return
		}
		out = append(out, segment{span: textSpan{runStart, runEnd}, kind: "module"})
		runStart = -1
	}

	count := int(root.ChildCount())
	for i := 0; i < count; i++ {
		child := root.Child(i)
		start, end := int(child.StartByte()), int(child.EndByte())
		if end <= start {
			continue
		}

		if isSplittable(cfg, child.Type()) {
			flushRun()
			for _, span := range splitNodeRecursive(child, source, maxChunkChars) {
				out = append(out, segment{span: span, kind: child.Type()})
			}
			continue
		}

		if runStart < 0 {
			runStart = start
		}
		runEnd = end
	}
	flushRun()

	return out
}

// splitNodeRecursive returns node's byte range as a single span if it fits
// within maxChunkChars. Otherwise it descends into node's children,
// recursing on each in turn ("the next grammatical level"); a child with
// no children of its own that still exceeds maxChunkChars is split by the
// size-based strategy as a last resort, scoped to that node only.
func splitNodeRecursive(node *sitter.Node, source []byte, maxChunkChars int) []textSpan {
	start, end := int(node.StartByte()), int(node.EndByte())
	if end-start <= maxChunkChars {
		return []textSpan{{start, end}}
	}

	childCount := int(node.ChildCount())
	if childCount == 0 {
		return splitBySizeAbs(source, start, end, maxChunkChars, 0)
	}

	var out []textSpan
	cursor := start
	for i := 0; i < childCount; i++ {
		child := node.Child(i)
		childEnd := int(child.EndByte())
		if childEnd <= cursor {
			continue
		}

		sub := splitNodeRecursive(child, source, maxChunkChars)
		if len(sub) == 0 {
			sub = splitBySizeAbs(source, cursor, childEnd, maxChunkChars, 0)
		} else if sub[0].Start > cursor {
			// attach the small gap before this child (whitespace, a comment
			// not modeled as a sibling, punctuation) to the first sub-span.
			sub[0].Start = cursor
		}
		out = append(out, sub...)
		cursor = childEnd
	}
	if cursor < end {
		if len(out) > 0 {
			out[len(out)-1].End = end
		} else {
			out = append(out, textSpan{cursor, end})
		}
	}
	return out
}

// mergeSmallSegments greedily merges consecutive segments while each is
// under minChunkChars and the combined size stays under maxChunkChars
// (spec §4.2.1). A merge spanning segments of different kinds is labeled
// "merged" since no single node type describes it.
func mergeSmallSegments(segments []segment, minChunkChars, maxChunkChars int) []segment {
	var out []segment
	i := 0
	for i < len(segments) {
		cur := segments[i]
		size := cur.span.End - cur.span.Start
		j := i + 1
		for size < minChunkChars && j < len(segments) {
			nextSize := segments[j].span.End - segments[j].span.Start
			if nextSize >= minChunkChars || size+nextSize > maxChunkChars {
				break
			}
			if cur.kind != segments[j].kind {
				cur.kind = "merged"
			}
			cur.span.End = segments[j].span.End
			size = cur.span.End - cur.span.Start
			j++
		}
		out = append(out, cur)
		i = j
	}
	return out
}
