package completion

import (
	"fmt"
	"strings"
)

// ListContext describes the list item the cursor sits in when a
// suggestion is accepted.
type ListContext struct {
	Ordered bool
	Marker  string // bullet marker for unordered lists, e.g. "-"
	Start   int    // number of the item under the cursor for ordered lists
	Indent  string // leading whitespace of the current item
}

// FormatAcceptance prepares accepted suggestion text for insertion at the
// cursor. Single-line acceptances pass through unchanged. A multi-line
// acceptance inside a list re-synthesizes each continuation line as a
// proper list item instead of inserting raw newlines into the current
// item.
func FormatAcceptance(text string, list *ListContext) string {
	if list == nil || !strings.Contains(text, "\n") {
		return text
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	item := 0

	for i, line := range lines {
		if i == 0 {
			// First line continues the item the cursor is already in
			out = append(out, line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		item++
		if list.Ordered {
			out = append(out, fmt.Sprintf("%s%d. %s", list.Indent, list.Start+item, trimmed))
		} else {
			marker := list.Marker
			if marker == "" {
				marker = "-"
			}
			out = append(out, fmt.Sprintf("%s%s %s", list.Indent, marker, trimmed))
		}
	}

	return strings.Join(out, "\n")
}
