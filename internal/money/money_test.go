package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"paymentgw/internal/money"
)

func TestParseDecimal_Valid(t *testing.T) {
	cases := map[string]money.Cents{
		"100.00": 10000,
		"100":    10000,
		"0.01":   1,
		"5.1":    510,
		"0":      0,
	}
	for input, want := range cases {
		got, err := money.ParseDecimal(input)
		assert.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestParseDecimal_Invalid(t *testing.T) {
	for _, input := range []string{"", "abc", "1.234", "1.2.3", "$5.00"} {
		_, err := money.ParseDecimal(input)
		assert.Error(t, err, input)
	}
}

func TestCents_String(t *testing.T) {
	assert.Equal(t, "100.00", money.Cents(10000).String())
	assert.Equal(t, "0.01", money.Cents(1).String())
	assert.Equal(t, "-5.50", money.Cents(-550).String())
}

func TestCents_ArithmeticAndPositive(t *testing.T) {
	a := money.Cents(500)
	b := money.Cents(200)

	assert.Equal(t, money.Cents(700), a.Add(b))
	assert.Equal(t, money.Cents(300), a.Sub(b))
	assert.True(t, a.Positive())
	assert.False(t, money.Cents(0).Positive())
}
