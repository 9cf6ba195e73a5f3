package chunker

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestSplitEmpty(t *testing.T) {
	if got := Split("", 400, 50); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
	if got := Split("   \n\t  ", 400, 50); got != nil {
		t.Errorf("expected nil for whitespace-only input, got %v", got)
	}
}

func TestSplitShortInput(t *testing.T) {
	chunks := Split("just a few words", 400, 50)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "just a few words" {
		t.Errorf("unexpected chunk text: %q", chunks[0])
	}
}

func TestSplitChunkCount(t *testing.T) {
	tests := []struct {
		n, window, overlap int
		want               int
	}{
		{1000, 400, 50, 3},  // starts at 0, 350, 700
		{400, 400, 50, 2},   // second window starts at 350 < 400
		{350, 400, 50, 1},
		{701, 400, 50, 3},
		{10, 4, 0, 3},       // 0-3, 4-7, 8-9
		{10, 4, 2, 5},       // stride 2: 0,2,4,6,8
	}

	for _, tt := range tests {
		chunks := Split(words(tt.n), tt.window, tt.overlap)
		if len(chunks) != tt.want {
			t.Errorf("Split(%d words, W=%d, O=%d): got %d chunks, want %d",
				tt.n, tt.window, tt.overlap, len(chunks), tt.want)
		}
	}
}

func TestSplitWindowAndStride(t *testing.T) {
	chunks := Split(words(1000), 400, 50)

	for i, c := range chunks {
		n := len(strings.Fields(c))
		if i < len(chunks)-1 && n != 400 {
			t.Errorf("chunk %d has %d words, want 400", i, n)
		}
		if n > 400 {
			t.Errorf("chunk %d exceeds window: %d words", i, n)
		}
	}

	// Concatenating every chunk's first stride words reconstructs the
	// original token sequence.
	stride := 400 - 50
	var rebuilt []string
	for _, c := range chunks {
		ws := strings.Fields(c)
		if len(ws) > stride {
			ws = ws[:stride]
		}
		rebuilt = append(rebuilt, ws...)
	}
	original := strings.Fields(words(1000))
	if !reflect.DeepEqual(rebuilt, original) {
		t.Errorf("stride-prefix concatenation does not reconstruct input: got %d words, want %d",
			len(rebuilt), len(original))
	}
}

func TestSplitOverlapContent(t *testing.T) {
	chunks := Split(words(20), 8, 3)
	if len(chunks) < 2 {
		t.Fatal("need at least 2 chunks")
	}

	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])

	// Last 3 words of the first window reappear at the head of the second.
	if !reflect.DeepEqual(first[len(first)-3:], second[:3]) {
		t.Errorf("overlap mismatch: %v vs %v", first[len(first)-3:], second[:3])
	}
}

func TestSplitNormalizesWhitespace(t *testing.T) {
	chunks := Split("a  b\tc\nd", 10, 0)
	if len(chunks) != 1 || chunks[0] != "a b c d" {
		t.Errorf("expected single-space joined chunk, got %v", chunks)
	}
}

func TestSplitIdempotent(t *testing.T) {
	input := words(777)
	a := Split(input, 400, 50)
	b := Split(input, 400, 50)
	if !reflect.DeepEqual(a, b) {
		t.Error("identical input produced different chunkings")
	}
}
