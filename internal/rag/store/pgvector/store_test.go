package pgvector

import "testing"

func TestEncodeEmbedding(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		want string
	}{
		{"simple", []float32{0.5, -1, 2}, "[0.5,-1,2]"},
		{"single", []float32{0.25}, "[0.25]"},
		{"empty", nil, "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := encodeEmbedding(tt.in); got != tt.want {
				t.Errorf("encodeEmbedding(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
