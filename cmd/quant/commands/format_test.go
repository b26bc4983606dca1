package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{8000, "$8,000.00"},
		{50000, "$50,000.00"},
		{-1234.5, "-$1,234.50"},
		{1234567.891, "$1,234,567.89"},
		{999.999, "$1,000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatMoney(tt.in))
		})
	}
}

func TestFormatPct(t *testing.T) {
	assert.Equal(t, "8.0%", formatPct(0.08))
	assert.Equal(t, "25.0%", formatPct(0.25))
}
