package settle

import (
	"testing"

	"github.com/calehh/hac-gov/tally"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func TestComputeTie(t *testing.T) {
	s := Compute(tally.Result{For: 1, Against: 1}, d("100"), 80)
	requireDec(t, "200", s.TotalStake)
	requireDec(t, "160", s.WinStake)
	requireDec(t, "40", s.LoseStake)
	requireDec(t, "160", s.WinRate)
	requireDec(t, "40", s.LoseRate)
	// on a tie the for side gets the losing rate
	requireDec(t, "40", s.ForRate)
	requireDec(t, "160", s.AgainstRate)
}

func TestComputeForWins(t *testing.T) {
	s := Compute(tally.Result{For: 3, Against: 1}, d("10"), 60)
	requireDec(t, "40", s.TotalStake)
	requireDec(t, "24", s.WinStake)
	requireDec(t, "16", s.LoseStake)
	require.Equal(t, int64(3), s.WinnerCount)
	require.Equal(t, int64(1), s.LoserCount)
	requireDec(t, "8", s.ForRate)
	requireDec(t, "16", s.AgainstRate)
}

func TestComputeAgainstWins(t *testing.T) {
	s := Compute(tally.Result{For: 2, Against: 5}, d("1"), 100)
	requireDec(t, "7", s.WinStake)
	requireDec(t, "0", s.LoseStake)
	requireDec(t, "1.4", s.AgainstRate)
	requireDec(t, "0", s.ForRate)
}

func TestComputeNoVotes(t *testing.T) {
	s := Compute(tally.Result{}, d("100"), 50)
	require.Zero(t, s.TotalVotes)
	requireDec(t, "0", s.ForRate)
	requireDec(t, "0", s.AgainstRate)
}

func TestComputeEmptyLosingSide(t *testing.T) {
	s := Compute(tally.Result{For: 3}, d("100"), 80)
	require.Zero(t, s.LoserCount)
	requireDec(t, "300", s.WinStake)
	requireDec(t, "100", s.ForRate)
	requireDec(t, "0", s.AgainstRate)
	requireDec(t, "300", s.Paid(tally.Result{For: 3}))

	s = Compute(tally.Result{Against: 2}, d("5"), 70)
	requireDec(t, "5", s.AgainstRate)
}

func TestComputeTruncates(t *testing.T) {
	s := Compute(tally.Result{For: 3, Against: 1}, d("1"), 50)
	// 2 / 3 truncated at 18 digits
	requireDec(t, "0.666666666666666666", s.ForRate)
	requireDec(t, "2", s.AgainstRate)
}

func TestConservation(t *testing.T) {
	stakes := []string{"1", "100", "0.5", "33.333", "1000000"}
	percents := []int64{1, 33, 50, 80, 99, 100}
	for _, stake := range stakes {
		for _, wp := range percents {
			for f := int64(0); f <= 7; f++ {
				for a := int64(0); a <= 7; a++ {
					r := tally.Result{For: f, Against: a}
					s := Compute(r, d(stake), wp)
					if s.TotalVotes == 0 {
						continue
					}
					diff := s.TotalStake.Sub(s.Paid(r)).Abs()
					tolerance := decimal.New(s.TotalVotes, -Precision)
					require.True(t, diff.LessThanOrEqual(tolerance),
						"stake=%s wp=%d for=%d against=%d diff=%s", stake, wp, f, a, diff)
					require.False(t, s.ForRate.IsNegative())
					require.False(t, s.AgainstRate.IsNegative())
				}
			}
		}
	}
}
