// Package chunker splits document text into overlapping word windows for
// embedding and retrieval.
package chunker

import "strings"

// Split slides a window of `window` words across the whitespace-split token
// sequence with a stride of window-overlap, starting at offset 0. The final
// window may be shorter than `window` when fewer tokens remain. Each chunk
// is its tokens rejoined with single spaces. Empty input yields nil.
//
// Split is pure: no state, no side effects. Callers must ensure
// 0 <= overlap < window.
func Split(text string, window, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	stride := window - overlap

	var chunks []string
	for start := 0; start < len(words); start += stride {
		end := start + window
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}

	return chunks
}
