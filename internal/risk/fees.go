package risk

import (
	"sort"

	"github.com/atlasquant/matrader/internal/types"
)

// FeeSchedule resolves trading fees from the broker's volume-tiered schedule.
// All calculations assume taker fills, the conservative case for market
// orders.
type FeeSchedule struct {
	tiers []types.FeeTier
}

// NewFeeSchedule builds a schedule from the given tiers. Tiers are copied and
// sorted ascending by volume threshold.
func NewFeeSchedule(tiers []types.FeeTier) *FeeSchedule {
	sorted := make([]types.FeeTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].VolumeThreshold < sorted[j].VolumeThreshold
	})

	return &FeeSchedule{tiers: sorted}
}

// TakerRate returns the taker rate for the highest tier the 30-day volume
// qualifies for. An empty schedule returns zero.
func (s *FeeSchedule) TakerRate(volume30d float64) float64 {
	rate := 0.0
	for _, tier := range s.tiers {
		if volume30d >= tier.VolumeThreshold {
			rate = tier.TakerRate
		}
	}

	return rate
}

// RoundTripFee is the total fee cost of buying and later selling the given
// size, in quote currency. The buy fee is charged in the base asset
// (quantity x rate) and valued at the entry price; the sell fee is charged on
// the exit notional.
func (s *FeeSchedule) RoundTripFee(size, entryPrice, exitPrice, volume30d float64) float64 {
	if size <= 0 {
		return 0
	}

	rate := s.TakerRate(volume30d)

	buyFee := size * rate * entryPrice
	sellFee := size * exitPrice * rate

	return buyFee + sellFee
}
