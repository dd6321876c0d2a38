package sched

import "strings"

// wrapText splits text into lines of at most maxLength characters, breaking
// at word boundaries. A single word longer than maxLength gets a line of its
// own rather than being cut.
func wrapText(text string, maxLength int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) <= maxLength {
			current += " " + word
		} else {
			lines = append(lines, current)
			current = word
		}
	}
	return append(lines, current)
}

// paginate wraps text at maxChars and groups the lines into screens of
// maxLines each.
func paginate(text string, maxLines int, maxChars int) [][]string {
	lines := wrapText(text, maxChars)

	var pages [][]string
	for start := 0; start < len(lines); start += maxLines {
		end := start + maxLines
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, lines[start:end])
	}
	return pages
}
