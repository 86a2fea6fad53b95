package knowledge

import "strings"

// SplitText cuts text into rune windows of at most size runes, with overlap
// runes shared between neighbors. Rune indexing keeps multi-byte text from
// being split mid-character. A non-positive size returns the whole text as
// one chunk; an overlap that would prevent progress is dropped.
func SplitText(text string, size, overlap int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if size <= 0 || len(runes) <= size {
		return []string{string(runes)}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	step := size - overlap
	parts := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return parts
}
