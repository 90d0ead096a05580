package chunk

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// astLanguage describes how to parse and classify one language's syntax
// tree for the AST chunker.
type astLanguage struct {
	language *sitter.Language
	name     string
	// topLevel maps a node kind that should become its own chunk to its
	// metadata Kind.
	topLevel map[string]Kind
	// containers maps a node kind whose body holds nested methods to its
	// metadata Kind (e.g. class/struct/impl).
	containers map[string]Kind
	// methods maps a node kind found inside a container's body to its
	// metadata Kind.
	methods map[string]Kind
}

var astLanguages = map[string]*astLanguage{}

func init() {
	// Go source has no tree-sitter grammar in this module's dependency set;
	// the code-aware regex splitter covers it instead, so "go" is
	// intentionally absent from this registry.

	pythonLang := sitter.NewLanguage(python.Language())
	astLanguages["python"] = &astLanguage{
		language: pythonLang,
		name:     "python",
		topLevel: map[string]Kind{
			"function_definition": KindFunction,
		},
		containers: map[string]Kind{
			"class_definition": KindClass,
		},
		methods: map[string]Kind{
			"function_definition": KindMethod,
		},
	}

	tsLang := sitter.NewLanguage(typescript.LanguageTypescript())
	astLanguages["typescript"] = &astLanguage{
		language: tsLang,
		name:     "typescript",
		topLevel: map[string]Kind{
			"function_declaration": KindFunction,
		},
		containers: map[string]Kind{
			"class_declaration":     KindClass,
			"interface_declaration": KindInterface,
		},
		methods: map[string]Kind{
			"method_definition": KindMethod,
		},
	}

	rustLang := sitter.NewLanguage(rust.Language())
	astLanguages["rust"] = &astLanguage{
		language: rustLang,
		name:     "rust",
		topLevel: map[string]Kind{
			"function_item": KindFunction,
			"enum_item":     KindEnum,
		},
		containers: map[string]Kind{
			"struct_item": KindStruct,
			"trait_item":  KindInterface,
			"impl_item":   KindImpl,
		},
		methods: map[string]Kind{
			"function_item": KindMethod,
		},
	}

	javaLang := sitter.NewLanguage(java.Language())
	astLanguages["java"] = &astLanguage{
		language: javaLang,
		name:     "java",
		topLevel: map[string]Kind{},
		containers: map[string]Kind{
			"class_declaration":     KindClass,
			"interface_declaration": KindInterface,
			"enum_declaration":      KindEnum,
		},
		methods: map[string]Kind{
			"method_declaration":      KindMethod,
			"constructor_declaration": KindMethod,
		},
	}

	rubyLang := sitter.NewLanguage(ruby.Language())
	astLanguages["ruby"] = &astLanguage{
		language: rubyLang,
		name:     "ruby",
		topLevel: map[string]Kind{
			"method": KindFunction,
		},
		containers: map[string]Kind{
			"class":  KindClass,
			"module": KindType,
		},
		methods: map[string]Kind{
			"method": KindMethod,
		},
	}

	cLang := sitter.NewLanguage(c.Language())
	astLanguages["c"] = &astLanguage{
		language: cLang,
		name:     "c",
		topLevel: map[string]Kind{
			"function_definition": KindFunction,
		},
		containers: map[string]Kind{
			"struct_specifier": KindStruct,
		},
	}

	phpLang := sitter.NewLanguage(php.LanguagePHP())
	astLanguages["php"] = &astLanguage{
		language: phpLang,
		name:     "php",
		topLevel: map[string]Kind{
			"function_definition": KindFunction,
		},
		containers: map[string]Kind{
			"class_declaration":     KindClass,
			"interface_declaration": KindInterface,
		},
		methods: map[string]Kind{
			"method_declaration": KindMethod,
		},
	}
}

// SupportsASTChunking reports whether relPath's language has a registered
// grammar.
func SupportsASTChunking(relPath string) bool {
	lang := LanguageForPath(relPath)
	_, ok := astLanguages[lang]
	return ok
}
