package settle

import (
	"github.com/calehh/hac-gov/tally"
	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits kept by divisions. Quotients
// are truncated toward zero.
const Precision = 18

var hundred = decimal.NewFromInt(100)

type Settlement struct {
	TotalVotes  int64           `json:"totalVotes"`
	TotalStake  decimal.Decimal `json:"totalStake"`
	WinStake    decimal.Decimal `json:"winStake"`
	LoseStake   decimal.Decimal `json:"loseStake"`
	WinnerCount int64           `json:"winnerCount"`
	LoserCount  int64           `json:"loserCount"`
	WinRate     decimal.Decimal `json:"winRate"`
	LoseRate    decimal.Decimal `json:"loseRate"`
	ForRate     decimal.Decimal `json:"forRate"`
	AgainstRate decimal.Decimal `json:"againstRate"`
}

func quo(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, Precision)
	return q
}

// Compute splits the staked pool between the two sides of a tally. The
// winning side shares winPercent of the pool, the losing side the rest. When
// nobody lost, the winners share the whole pool. On a tie the for side is paid
// the losing rate.
func Compute(r tally.Result, stake decimal.Decimal, winPercent int64) Settlement {
	s := Settlement{
		TotalVotes: r.For + r.Against,
		WinRate:    decimal.Zero,
		LoseRate:   decimal.Zero,
	}
	s.TotalStake = stake.Mul(decimal.NewFromInt(s.TotalVotes))
	s.WinStake = quo(s.TotalStake.Mul(decimal.NewFromInt(winPercent)), hundred)
	s.LoseStake = s.TotalStake.Sub(s.WinStake)
	s.WinnerCount = r.For
	if r.Against > r.For {
		s.WinnerCount = r.Against
	}
	s.LoserCount = s.TotalVotes - s.WinnerCount
	if s.LoserCount == 0 && s.WinnerCount > 0 {
		s.WinStake = s.TotalStake
		s.LoseStake = decimal.Zero
	}
	if s.WinnerCount > 0 {
		s.WinRate = quo(s.WinStake, decimal.NewFromInt(s.WinnerCount))
	}
	if s.LoserCount > 0 {
		s.LoseRate = quo(s.LoseStake, decimal.NewFromInt(s.LoserCount))
	}
	if r.For > r.Against {
		s.ForRate, s.AgainstRate = s.WinRate, s.LoseRate
	} else {
		s.ForRate, s.AgainstRate = s.LoseRate, s.WinRate
	}
	return s
}

// Paid is the total handed out at the computed rates.
func (s Settlement) Paid(r tally.Result) decimal.Decimal {
	return s.ForRate.Mul(decimal.NewFromInt(r.For)).Add(s.AgainstRate.Mul(decimal.NewFromInt(r.Against)))
}
