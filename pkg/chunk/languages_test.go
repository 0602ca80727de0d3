package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRegistry_CoversAllFourteenLanguages(t *testing.T) {
	reg := DefaultRegistry()
	want := []string{
		"go", "typescript", "tsx", "javascript", "jsx", "python", "java",
		"c", "cpp", "csharp", "rust", "php", "ruby", "swift", "kotlin", "scala",
	}
	for _, name := range want {
		cfg, ok := reg.ByName(name)
		assert.True(t, ok, "expected %s to be registered", name)
		if ok {
			_, hasGrammar := reg.TreeSitterLanguage(cfg.Name)
			assert.True(t, hasGrammar, "expected a grammar for %s", name)
		}
	}
}

func TestByExtension_ResolvesKnownExtensions(t *testing.T) {
	reg := DefaultRegistry()

	cases := map[string]string{
		".go":    "go",
		".ts":    "typescript",
		".tsx":   "tsx",
		".py":    "python",
		".java":  "java",
		".rs":    "rust",
		".rb":    "ruby",
		".swift": "swift",
		".kt":    "kotlin",
		".scala": "scala",
	}
	for ext, wantLang := range cases {
		cfg, ok := reg.ByExtension(ext)
		assert.True(t, ok, "extension %s should resolve", ext)
		if ok {
			assert.Equal(t, wantLang, cfg.Name)
		}
	}
}

func TestByExtension_UnknownExtensionNotFound(t *testing.T) {
	_, ok := DefaultRegistry().ByExtension(".xyz")
	assert.False(t, ok)
}
