package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatID(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		n      int64
		want   string
	}{
		{name: "pads small values to five digits", prefix: "EGL", n: 7, want: "EGL00007"},
		{name: "first allocation", prefix: "EGL", n: 1, want: "EGL00001"},
		{name: "exactly five digits", prefix: "EGL", n: 99999, want: "EGL99999"},
		{name: "keeps full width beyond five digits", prefix: "EGL", n: 123456, want: "EGL123456"},
		{name: "other prefix", prefix: "ORD", n: 42, want: "ORD00042"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatID(tt.prefix, tt.n))
		})
	}
}
