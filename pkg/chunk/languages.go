package chunk

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/scala"
	"github.com/smacker/go-tree-sitter/swift"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// LanguageConfig describes how a language's grammar maps to splittable
// chunk boundaries.
type LanguageConfig struct {
	Name       string
	Extensions []string

	// SplittableTypes are the grammar node types treated as top-level
	// chunk boundaries: function/method definitions, class/struct/enum/
	// interface declarations, and similar declaration-level constructs.
	SplittableTypes []string
}

func isSplittable(cfg *LanguageConfig, nodeType string) bool {
	for _, t := range cfg.SplittableTypes {
		if t == nodeType {
			return true
		}
	}
	return false
}

// LanguageRegistry maps extensions and names to grammars and chunk
// boundary configuration for every AST-supported language.
type LanguageRegistry struct {
	mu          sync.RWMutex
	configs     map[string]*LanguageConfig
	extToLang   map[string]string
	tsLanguages map[string]*sitter.Language
}

// NewLanguageRegistry builds a registry covering every language spec §4.2.1
// names: TypeScript, JavaScript, Python, Java, C, C++, C#, Go, Rust, PHP,
// Ruby, Swift, Kotlin, and Scala. Markdown is handled by a dedicated
// heading-based chunker, not this registry.
func NewLanguageRegistry() *LanguageRegistry {
	r := &LanguageRegistry{
		configs:     make(map[string]*LanguageConfig),
		extToLang:   make(map[string]string),
		tsLanguages: make(map[string]*sitter.Language),
	}

	r.register(&LanguageConfig{
		Name:       "go",
		Extensions: []string{".go"},
		SplittableTypes: []string{
			"function_declaration", "method_declaration", "type_declaration",
			"const_declaration", "var_declaration",
		},
	}, golang.GetLanguage())

	tsConfig := &LanguageConfig{
		Name:       "typescript",
		Extensions: []string{".ts"},
		SplittableTypes: []string{
			"function_declaration", "method_definition", "class_declaration",
			"interface_declaration", "type_alias_declaration", "enum_declaration",
			"lexical_declaration", "variable_declaration",
		},
	}
	r.register(tsConfig, typescript.GetLanguage())
	r.register(&LanguageConfig{
		Name: "tsx", Extensions: []string{".tsx"}, SplittableTypes: tsConfig.SplittableTypes,
	}, tsx.GetLanguage())

	jsConfig := &LanguageConfig{
		Name:       "javascript",
		Extensions: []string{".js", ".mjs", ".cjs"},
		SplittableTypes: []string{
			"function_declaration", "function", "method_definition",
			"class_declaration", "lexical_declaration", "variable_declaration",
		},
	}
	r.register(jsConfig, javascript.GetLanguage())
	r.register(&LanguageConfig{
		Name: "jsx", Extensions: []string{".jsx"}, SplittableTypes: jsConfig.SplittableTypes,
	}, javascript.GetLanguage())

	r.register(&LanguageConfig{
		Name:       "python",
		Extensions: []string{".py", ".pyi"},
		SplittableTypes: []string{
			"function_definition", "class_definition", "decorated_definition",
		},
	}, python.GetLanguage())

	r.register(&LanguageConfig{
		Name:       "java",
		Extensions: []string{".java"},
		SplittableTypes: []string{
			"method_declaration", "constructor_declaration", "class_declaration",
			"interface_declaration", "enum_declaration", "field_declaration",
			"record_declaration",
		},
	}, java.GetLanguage())

	r.register(&LanguageConfig{
		Name:       "c",
		Extensions: []string{".c", ".h"},
		SplittableTypes: []string{
			"function_definition", "struct_specifier", "enum_specifier",
			"union_specifier", "type_definition",
		},
	}, c.GetLanguage())

	r.register(&LanguageConfig{
		Name:       "cpp",
		Extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh"},
		SplittableTypes: []string{
			"function_definition", "class_specifier", "struct_specifier",
			"enum_specifier", "namespace_definition", "template_declaration",
		},
	}, cpp.GetLanguage())

	r.register(&LanguageConfig{
		Name:       "csharp",
		Extensions: []string{".cs"},
		SplittableTypes: []string{
			"method_declaration", "class_declaration", "interface_declaration",
			"struct_declaration", "enum_declaration", "record_declaration",
			"constructor_declaration", "property_declaration",
		},
	}, csharp.GetLanguage())

	r.register(&LanguageConfig{
		Name:       "rust",
		Extensions: []string{".rs"},
		SplittableTypes: []string{
			"function_item", "struct_item", "enum_item", "impl_item",
			"trait_item", "mod_item", "const_item", "static_item",
		},
	}, rust.GetLanguage())

	r.register(&LanguageConfig{
		Name:       "php",
		Extensions: []string{".php"},
		SplittableTypes: []string{
			"function_definition", "method_declaration", "class_declaration",
			"interface_declaration", "trait_declaration", "enum_declaration",
		},
	}, php.GetLanguage())

	r.register(&LanguageConfig{
		Name:       "ruby",
		Extensions: []string{".rb"},
		SplittableTypes: []string{
			"method", "singleton_method", "class", "module",
		},
	}, ruby.GetLanguage())

	r.register(&LanguageConfig{
		Name:       "swift",
		Extensions: []string{".swift"},
		SplittableTypes: []string{
			"function_declaration", "class_declaration", "protocol_declaration",
			"extension_declaration", "init_declaration",
		},
	}, swift.GetLanguage())

	r.register(&LanguageConfig{
		Name:       "kotlin",
		Extensions: []string{".kt", ".kts"},
		SplittableTypes: []string{
			"function_declaration", "class_declaration", "object_declaration",
			"property_declaration",
		},
	}, kotlin.GetLanguage())

	r.register(&LanguageConfig{
		Name:       "scala",
		Extensions: []string{".scala"},
		SplittableTypes: []string{
			"function_definition", "class_definition", "object_definition",
			"trait_definition", "val_definition", "var_definition",
		},
	}, scala.GetLanguage())

	return r
}

func (r *LanguageRegistry) register(cfg *LanguageConfig, lang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[cfg.Name] = cfg
	r.tsLanguages[cfg.Name] = lang
	for _, ext := range cfg.Extensions {
		r.extToLang[ext] = cfg.Name
	}
}

// ByExtension returns the language config registered for ext (which may or
// may not carry a leading dot).
func (r *LanguageRegistry) ByExtension(ext string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	cfg, ok := r.configs[name]
	return cfg, ok
}

// ByName returns the language config registered under name.
func (r *LanguageRegistry) ByName(name string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[name]
	return cfg, ok
}

// TreeSitterLanguage returns the compiled grammar for a registered language.
func (r *LanguageRegistry) TreeSitterLanguage(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.tsLanguages[name]
	return lang, ok
}

var defaultRegistry = NewLanguageRegistry()

// DefaultRegistry returns the process-wide language registry.
func DefaultRegistry() *LanguageRegistry { return defaultRegistry }
