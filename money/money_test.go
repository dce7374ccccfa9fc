package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	a, err := Parse("149.90")
	require.NoError(t, err)
	assert.Equal(t, "149.9", a.String())

	_, err = Parse("not-money")
	require.Error(t, err)
}

func TestRound2HalfUp(t *testing.T) {
	cases := map[string]string{
		"10.005": "10.01",
		"10.004": "10",
		"10.015": "10.02",
		"2.675":  "2.68",
		"8400":   "8400",
	}
	for in, want := range cases {
		a, err := Parse(in)
		require.NoError(t, err)
		assert.Equal(t, want, Round2(a).String(), "rounding %s", in)
	}
}

func TestPercent(t *testing.T) {
	base, _ := Parse("7500")
	rate, _ := Parse("12")
	assert.Equal(t, "900", Percent(base, rate).String())

	assert.Equal(t, "4200", PercentInt(FromInt(8400), 50).String())
	assert.True(t, PercentInt(FromInt(8400), 0).IsZero())
}

func TestMin(t *testing.T) {
	a := FromInt(100)
	b := FromInt(250)
	assert.Equal(t, a, Min(a, b))
	assert.Equal(t, a, Min(b, a))
}
