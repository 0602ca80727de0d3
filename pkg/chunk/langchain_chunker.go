package chunk

// langchainSeparators is the priority-ordered separator list spec §4.2.2
// specifies for the size-based fallback strategy: try to split on blank
// lines first, then single newlines, then spaces, and finally fall back to
// splitting at any character.
var langchainSeparators = []string{"\n\n", "\n", " ", ""}

// textSpan is a half-open [Start, End) byte range into the original text.
type textSpan struct {
	Start, End int
}

// splitBySize implements the langchain RecursiveCharacterTextSplitter
// algorithm over text, returning chunk spans rather than copied strings so
// callers can compute exact line numbers against the original offsets.
// Invariant upheld (spec §4.2.2): each span is at most chunkSize bytes,
// and adjacent spans overlap by exactly chunkOverlap bytes (assuming
// chunkOverlap < chunkSize).
func splitBySize(text string, chunkSize, chunkOverlap int) []textSpan {
	if text == "" {
		return nil
	}

	pieces := recursiveSplitSpans(textSpan{0, len(text)}, text, langchainSeparators, chunkSize)
	return mergeSpansWithOverlap(pieces, len(text), chunkSize, chunkOverlap)
}

// recursiveSplitSpans partitions span into sub-spans no larger than
// chunkSize, preferring to cut on the earliest usable separator. The
// returned spans are contiguous and exactly tile span.
func recursiveSplitSpans(span textSpan, text string, separators []string, chunkSize int) []textSpan {
	if span.End-span.Start <= chunkSize {
		return []textSpan{span}
	}
	if len(separators) == 0 {
		return hardSplitSpan(span, chunkSize)
	}

	sep, rest := separators[0], separators[1:]

	var parts []textSpan
	if sep == "" {
		parts = hardSplitSpan(span, chunkSize)
	} else {
		parts = splitSpanKeepSeparator(span, text, sep)
	}

	var out []textSpan
	for _, p := range parts {
		if p.End-p.Start == 0 {
			continue
		}
		if p.End-p.Start > chunkSize {
			out = append(out, recursiveSplitSpans(p, text, rest, chunkSize)...)
		} else {
			out = append(out, p)
		}
	}
	return out
}

// splitSpanKeepSeparator splits span on occurrences of sep within text,
// attaching sep to the end of every piece but the last so the pieces tile
// span without losing characters.
func splitSpanKeepSeparator(span textSpan, text, sep string) []textSpan {
	var out []textSpan
	start := span.Start
	for start < span.End {
		idx := indexOfIn(text, sep, start, span.End)
		if idx < 0 {
			out = append(out, textSpan{start, span.End})
			break
		}
		out = append(out, textSpan{start, idx + len(sep)})
		start = idx + len(sep)
	}
	if len(out) == 0 {
		out = append(out, span)
	}
	return out
}

func indexOfIn(text, sep string, from, to int) int {
	for i := from; i+len(sep) <= to; i++ {
		if text[i:i+len(sep)] == sep {
			return i
		}
	}
	return -1
}

func hardSplitSpan(span textSpan, chunkSize int) []textSpan {
	var out []textSpan
	start := span.Start
	for span.End-start > chunkSize {
		out = append(out, textSpan{start, start + chunkSize})
		start += chunkSize
	}
	if start < span.End {
		out = append(out, textSpan{start, span.End})
	}
	return out
}

// splitBySizeAbs runs splitBySize over source[start:end] and shifts the
// resulting spans back into source's absolute byte offsets.
func splitBySizeAbs(source []byte, start, end, chunkSize, chunkOverlap int) []textSpan {
	spans := splitBySize(string(source[start:end]), chunkSize, chunkOverlap)
	out := make([]textSpan, len(spans))
	for i, s := range spans {
		out[i] = textSpan{s.Start + start, s.End + start}
	}
	return out
}

// mergeSpansWithOverlap greedily packs contiguous piece spans into chunks,
// then expands each chunk's start backward by chunkOverlap bytes (except
// the first) so adjacent chunks share exactly chunkOverlap characters of
// original text, per spec §4.2.2. The pack budget is chunkSize minus the
// overlap that's about to be added back, so the final, overlap-expanded
// chunk never exceeds chunkSize — langchain's own merge keeps the same
// invariant by popping leading pieces back off a chunk before closing it.
func mergeSpansWithOverlap(pieces []textSpan, textLen, chunkSize, chunkOverlap int) []textSpan {
	if len(pieces) == 0 {
		return nil
	}

	packBudget := chunkSize
	if chunkOverlap > 0 && chunkOverlap < chunkSize {
		packBudget = chunkSize - chunkOverlap
	}

	var merged []textSpan
	cur := textSpan{pieces[0].Start, pieces[0].Start}
	for _, p := range pieces {
		candidateLen := p.End - cur.Start
		if cur.End > cur.Start && candidateLen > packBudget {
			merged = append(merged, cur)
			cur = textSpan{cur.End, cur.End}
		}
		cur.End = p.End
		for cur.End-cur.Start > packBudget {
			merged = append(merged, textSpan{cur.Start, cur.Start + packBudget})
			cur.Start += packBudget
		}
	}
	if cur.End > cur.Start {
		merged = append(merged, cur)
	}

	if chunkOverlap <= 0 || len(merged) < 2 {
		return merged
	}

	out := make([]textSpan, len(merged))
	out[0] = merged[0]
	for i := 1; i < len(merged); i++ {
		start := merged[i].Start - chunkOverlap
		if start < out[i-1].Start {
			start = out[i-1].Start
		}
		if start < 0 {
			start = 0
		}
		out[i] = textSpan{start, merged[i].End}
	}
	return out
}
