package money_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pizza/internal/money"
)

func TestRound2HalfUp(t *testing.T) {
	require.Equal(t, "2.35", money.Format(money.Round2(money.MustParse("2.345"))))
	require.Equal(t, "2.34", money.Format(money.Round2(money.MustParse("2.3449"))))
	require.Equal(t, "0.01", money.Format(money.Round2(money.MustParse("0.005"))))
}

func TestSumDoesNotRoundIntermediateTerms(t *testing.T) {
	total := money.Sum(money.MustParse("0.004"), money.MustParse("0.004"), money.MustParse("0.004"))
	require.True(t, total.Equal(money.MustParse("0.012")))
	require.Equal(t, "0.01", money.Format(money.Round2(total)))
}

func TestTimes(t *testing.T) {
	require.True(t, money.Times(money.MustParse("4.50"), 3).Equal(money.MustParse("13.5")))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := money.Parse("twelve")
	require.Error(t, err)
}
