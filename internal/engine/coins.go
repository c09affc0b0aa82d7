package engine

import (
	"fmt"
	"math"
)

// Coin denominations: 1 gold = 10,000 copper, 1 silver = 100 copper.
const (
	CopperPerSilver int64 = 100
	CopperPerGold   int64 = 10_000
)

// DecomposeCoins rounds a raw copper amount to the nearest whole copper and
// splits it into gold/silver/copper. Raw values arrive fractional from
// averaging math (e.g. 72.80000000000018 decomposes like 73). Negative
// inputs clamp to zero; monetary amounts are never negative here.
func DecomposeCoins(raw float64) (gold, silver, copper int64) {
	return SplitCoins(RoundCoins(raw))
}

// RoundCoins rounds a raw copper amount to the nearest whole copper,
// clamping negatives to zero.
func RoundCoins(raw float64) int64 {
	total := int64(math.Round(raw))
	if total < 0 {
		total = 0
	}
	return total
}

// SplitCoins splits a whole copper amount into gold/silver/copper.
func SplitCoins(total int64) (gold, silver, copper int64) {
	if total < 0 {
		total = 0
	}
	gold = total / CopperPerGold
	rem := total % CopperPerGold
	silver = rem / CopperPerSilver
	copper = rem % CopperPerSilver
	return gold, silver, copper
}

// FormatCoins renders a copper amount as "1g 23s 45c", dropping leading
// zero denominations.
func FormatCoins(total int64) string {
	g, s, c := SplitCoins(total)
	switch {
	case g > 0:
		return fmt.Sprintf("%dg %ds %dc", g, s, c)
	case s > 0:
		return fmt.Sprintf("%ds %dc", s, c)
	default:
		return fmt.Sprintf("%dc", c)
	}
}
