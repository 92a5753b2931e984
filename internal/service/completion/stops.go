package completion

import (
	"regexp"
	"strings"
)

// BlockClass is the content classification of the block under the cursor.
// It selects which early-stop rules apply to the accumulating suggestion.
type BlockClass string

const (
	ClassText     BlockClass = "text"
	ClassCode     BlockClass = "code"
	ClassMarkdown BlockClass = "markdown"
)

var (
	sentenceEnd = regexp.MustCompile(`[.!?] `)
	// A heading or list marker at the start of a line signals the model
	// drifting into new document structure rather than finishing the
	// current block.
	markdownBlockStart = regexp.MustCompile(`\n(#{1,6} |[-*+] |\d+\. )`)
)

// StopIndex evaluates the accumulating suggestion text against the stop
// rules for class. It returns the index the suggestion should be cut at
// and whether any rule fired. Rules:
//
//   - universal: double newline, or length beyond maxLength
//   - code: closing brace, semicolon, "return ", or any newline
//   - markdown: the start of a new heading or list item
//   - text: sentence-ending punctuation followed by a space
func StopIndex(class BlockClass, text string, maxLength int) (int, bool) {
	cut := len(text)
	stopped := false

	apply := func(idx int) {
		if idx >= 0 && idx < cut {
			cut = idx
			stopped = true
		}
	}

	if idx := strings.Index(text, "\n\n"); idx >= 0 {
		apply(idx)
	}

	switch class {
	case ClassCode:
		if idx := strings.IndexByte(text, '}'); idx >= 0 {
			apply(idx + 1)
		}
		if idx := strings.IndexByte(text, ';'); idx >= 0 {
			apply(idx + 1)
		}
		// A fresh return statement means the model moved past the
		// expression being completed.
		if idx := strings.Index(text, "return "); idx > 0 {
			apply(idx)
		}
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			apply(idx)
		}

	case ClassMarkdown:
		if loc := markdownBlockStart.FindStringIndex(text); loc != nil {
			apply(loc[0])
		}

	default:
		if loc := sentenceEnd.FindStringIndex(text); loc != nil {
			// Keep the punctuation, drop the trailing space
			apply(loc[0] + 1)
		}
	}

	if maxLength > 0 && len(text) > maxLength {
		if maxLength < cut {
			cut = maxLength
			stopped = true
		}
	}

	return cut, stopped
}
