package chunk

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
)

var markdownExtensions = map[string]struct{}{
	".md": {}, ".markdown": {}, ".mdx": {},
}

// fallbackWarned tracks which languages have already logged a grammar
// load-failure WARN this process run, so repeated failures for the same
// language across many files don't flood the log (spec §4.2.1: "records a
// WARN once per language per run").
var (
	fallbackWarnedMu sync.Mutex
	fallbackWarned   = map[string]bool{}
)

func warnFallbackOnce(language string, err error) {
	fallbackWarnedMu.Lock()
	defer fallbackWarnedMu.Unlock()
	if fallbackWarned[language] {
		return
	}
	fallbackWarned[language] = true
	slog.Warn("chunk: grammar unavailable, falling back to size-based chunking",
		slog.String("language", language), slog.String("error", err.Error()))
}

// Chunk splits file into chunks per opts. Language is taken from
// file.Language if set, otherwise detected from the file's extension.
func Chunk(ctx context.Context, file *FileInput, opts Options) ([]Unit, error) {
	opts = opts.withDefaults()

	if opts.Strategy == StrategyLangchain {
		return chunkLangchainFile(file, opts, ""), nil
	}

	ext := strings.ToLower(filepath.Ext(file.Path))
	if _, ok := markdownExtensions[ext]; ok {
		return chunkMarkdown(file), nil
	}

	var cfg *LanguageConfig
	var ok bool
	if file.Language != "" {
		cfg, ok = DefaultRegistry().ByName(file.Language)
	} else {
		cfg, ok = DefaultRegistry().ByExtension(ext)
	}
	if !ok {
		return chunkLangchainFile(file, opts, ""), nil
	}

	lang, ok := DefaultRegistry().TreeSitterLanguage(cfg.Name)
	if !ok {
		return chunkLangchainFile(file, opts, cfg.Name), nil
	}

	chunks, err := chunkAST(ctx, cfg, lang, file, opts)
	if err != nil {
		warnFallbackOnce(cfg.Name, err)
		return chunkLangchainFile(file, opts, cfg.Name), nil
	}
	return chunks, nil
}

// chunkLangchainFile runs the size-based strategy over the whole file and
// stamps the resulting chunks with language (if known).
func chunkLangchainFile(file *FileInput, opts Options, language string) []Unit {
	source := normalizeNewlines(string(file.Content))
	spans := splitBySize(source, opts.ChunkSize, opts.ChunkOverlap)

	chunks := make([]Unit, 0, len(spans))
	for _, span := range spans {
		if span.End <= span.Start {
			continue
		}
		chunks = append(chunks, Unit{
			FilePath:  file.Path,
			Content:   source[span.Start:span.End],
			Language:  language,
			NodeKind:  string(StrategyLangchain),
			StartLine: lineAt(source, span.Start),
			EndLine:   lineAt(source, max(span.Start, span.End-1)),
		})
	}
	return chunks
}
