// Package extract pulls fenced code blocks out of model replies.
package extract

import (
	"regexp"
	"strings"

	"atelier.dev/atelier/common/lang"
)

// Block is one fenced code block from a reply, in source order.
type Block struct {
	Language string
	Code     string
}

// fencePattern matches a triple-backtick fence with an optional language tag
// on the opening line. The body is matched non-greedily so adjacent blocks do
// not merge; a fence with no closing line matches nothing.
var fencePattern = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)[ \t]*\n(.*?)```")

// Blocks returns every fenced code block in text. Untagged fences default to
// the ruby language, tags are lowercased, and each body is trimmed of
// surrounding whitespace.
func Blocks(text string) []Block {
	matches := fencePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	blocks := make([]Block, 0, len(matches))
	for _, match := range matches {
		language := strings.ToLower(match[1])
		if language == "" {
			language = lang.DefaultLanguage
		}
		blocks = append(blocks, Block{
			Language: language,
			Code:     strings.TrimSpace(match[2]),
		})
	}
	return blocks
}
