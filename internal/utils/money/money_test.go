package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinor(t *testing.T) {
	tests := []struct {
		in       string
		currency string
		want     int64
	}{
		{"12.50", "usd", 1250},
		{"50", "USD", 5000},
		{" 0.01 ", "eur", 1},
		{"1500", "JPY", 1500},
		{"1.234", "KWD", 1234},
		{"-3.00", "usd", -300},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMinor(tt.in, tt.currency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMinor_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1.005", "12,50"} {
		_, err := ParseMinor(in, "usd")
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}

	_, err := ParseMinor("1.5", "JPY")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFormatMinor(t *testing.T) {
	assert.Equal(t, "12.50", FormatMinor(1250, "usd"))
	assert.Equal(t, "0.05", FormatMinor(5, "usd"))
	assert.Equal(t, "1500", FormatMinor(1500, "jpy"))
}
