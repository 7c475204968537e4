package bytefmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1 KiB"},
		{1536, "1.5 KiB"},
		{4 << 30, "4 GiB"},
		{15 << 30, "15 GiB"},
		{1 << 40, "1 TiB"},
		{-7, "0 B"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in), "Format(%d)", tt.in)
	}
}

func TestFormatStable(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, "15 GiB", Format(15<<30))
	}
}

func TestFormatComponentsDeriveFromTotal(t *testing.T) {
	// 4 GiB used + 11 GiB remaining must read as parts of the same 15 GiB limit.
	used, remaining, limit := int64(4<<30), int64(11<<30), int64(15<<30)
	assert.Equal(t, "4 GiB", Format(used))
	assert.Equal(t, "11 GiB", Format(remaining))
	assert.Equal(t, "15 GiB", Format(limit))
	assert.Equal(t, limit, used+remaining)
}
