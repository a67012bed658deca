package feed

import (
	"math/rand"

	"makersim/internal/domain"
)

// PermutePrices returns a copy of the feed with the price column shuffled
// across ticks while times, sizes, and taker flags stay in place. Running a
// strategy against permuted feeds shows how much of its PnL depends on the
// actual price path rather than the price distribution. The shuffle is
// seeded, so a permutation can be reproduced.
func PermutePrices(ticks []domain.Tick, seed int64) []domain.Tick {
	out := make([]domain.Tick, len(ticks))
	copy(out, ticks)

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out), func(i, j int) {
		out[i].Price, out[j].Price = out[j].Price, out[i].Price
	})
	return out
}
