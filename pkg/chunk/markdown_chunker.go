package chunk

import "regexp"

// headingPattern matches ATX headings of any level: "#" through "######".
var headingPattern = regexp.MustCompile(`(?m)^#{1,6}[ \t]+\S.*$`)

// chunkMarkdown splits markdown content at every heading, regardless of
// level (spec §4.2.1: "for Markdown, headings at any level"). A chunk runs
// from one heading up to (but not including) the next, and any content
// preceding the first heading becomes its own chunk.
func chunkMarkdown(file *FileInput) []Unit {
	source := normalizeNewlines(string(file.Content))
	if source == "" {
		return nil
	}

	locs := headingPattern.FindAllStringIndex(source, -1)
	if len(locs) == 0 {
		return []Unit{{
			FilePath:  file.Path,
			Content:   source,
			Language:  "markdown",
			NodeKind:  "document",
			StartLine: 1,
			EndLine:   lineAt(source, max(0, len(source)-1)),
		}}
	}

	var chunks []Unit
	if locs[0][0] > 0 {
		preamble := source[:locs[0][0]]
		chunks = append(chunks, Unit{
			FilePath:  file.Path,
			Content:   preamble,
			Language:  "markdown",
			NodeKind:  "preamble",
			StartLine: 1,
			EndLine:   lineAt(source, max(0, locs[0][0]-1)),
		})
	}

	for i, loc := range locs {
		start := loc[0]
		end := len(source)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		chunks = append(chunks, Unit{
			FilePath:  file.Path,
			Content:   source[start:end],
			Language:  "markdown",
			NodeKind:  "heading",
			StartLine: lineAt(source, start),
			EndLine:   lineAt(source, max(start, end-1)),
		})
	}
	return chunks
}
