package model

import "strings"

// ChunkText splits text into rune-based chunks of at most size runes, each
// chunk after the first starting overlap runes before the previous chunk's
// end. The stride is exact so that chunks[0] followed by chunks[i][overlap:]
// reconstructs the input; deterministic for identical arguments.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	stride := size - overlap

	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
