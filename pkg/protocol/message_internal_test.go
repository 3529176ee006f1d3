package protocol

import "testing"

func TestEncodeHeader(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "   0"},
		{7, "   7"},
		{42, "  42"},
		{512, " 512"},
		{9999, "9999"},
	}

	for _, tt := range tests {
		dst := make([]byte, HeaderSize)
		encodeHeader(dst, tt.n)
		if string(dst) != tt.want {
			t.Errorf("encodeHeader(%d) = %q, want %q", tt.n, dst, tt.want)
		}
	}
}
