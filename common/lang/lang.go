// Package lang holds the static language tables: extension to language for
// context labeling, language to extension for artifact naming, and language
// to interpreter for script execution.
package lang

import (
	"path/filepath"
	"strings"
)

// DefaultLanguage tags code fences that carry no language tag.
const DefaultLanguage = "ruby"

var languageByExtension = map[string]string{
	".rb":   "ruby",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".java": "java",
	".go":   "go",
	".rs":   "rust",
	".c":    "cpp",
	".cpp":  "cpp",
	".h":    "cpp",
	".cs":   "csharp",
	".sh":   "bash",
	".sql":  "sql",
	".json": "json",
	".yml":  "yaml",
	".yaml": "yaml",
	".md":   "markdown",
	".html": "html",
	".css":  "css",
	".php":  "php",
}

// extensionByLanguage holds one canonical extension per language, used when
// naming generated artifacts.
var extensionByLanguage = map[string]string{
	"ruby":       ".rb",
	"python":     ".py",
	"javascript": ".js",
	"typescript": ".ts",
	"java":       ".java",
	"go":         ".go",
	"rust":       ".rs",
	"cpp":        ".cpp",
	"csharp":     ".cs",
	"bash":       ".sh",
	"sql":        ".sql",
	"json":       ".json",
	"yaml":       ".yml",
	"markdown":   ".md",
	"html":       ".html",
	"css":        ".css",
	"php":        ".php",
}

// interpreterByLanguage gates script execution; only listed languages run.
var interpreterByLanguage = map[string]string{
	"ruby": "ruby",
}

// ForPath returns the fence label for a file path, or "" when the extension
// is unknown.
func ForPath(path string) string {
	return languageByExtension[strings.ToLower(filepath.Ext(path))]
}

// Extension returns the canonical file extension for a language.
func Extension(language string) (string, bool) {
	ext, ok := extensionByLanguage[strings.ToLower(language)]
	return ext, ok
}

// Interpreter returns the command that runs scripts of the language.
func Interpreter(language string) (string, bool) {
	cmd, ok := interpreterByLanguage[strings.ToLower(language)]
	return cmd, ok
}

// NormalizeExtension returns the lowercase dot-prefixed form of an extension
// filter entry; "rb" and ".rb" both normalize to ".rb".
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
