package strategy

import "math"

// Rounding normalises a computed order price before it is stored or compared.
// Grid strategies apply it to every generated price so ladders land on
// exchange-representable levels.
type Rounding func(price float64) float64

// RoundIdentity leaves prices untouched.
func RoundIdentity() Rounding {
	return func(p float64) float64 { return p }
}

// RoundDecimals rounds to the given number of decimal places.
func RoundDecimals(places int) Rounding {
	pow := math.Pow(10, float64(places))
	return func(p float64) float64 {
		return math.Round(p*pow) / pow
	}
}

// RoundTick rounds to the nearest multiple of the given tick size. A
// non-positive tick size degenerates to the identity.
func RoundTick(tick float64) Rounding {
	if tick <= 0 {
		return RoundIdentity()
	}
	return func(p float64) float64 {
		return math.Round(p/tick) * tick
	}
}
