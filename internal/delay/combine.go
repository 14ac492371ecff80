package delay

import (
	"fmt"
	"math"

	"github.com/jasonKoogler/noc-lat/internal/modelerr"
)

// GeomeanDomainError reports per-core deltas whose product has no real
// root.
type GeomeanDomainError struct {
	Deltas  []float64
	Product float64
}

func (e *GeomeanDomainError) Error() string {
	return fmt.Sprintf("geometric mean of %v undefined, product %g is negative",
		e.Deltas, e.Product)
}

func (e *GeomeanDomainError) Unwrap() error { return modelerr.ErrNumericConsistency }

// Combine reduces per-core deltas to a single latency, the ceiling of their
// geometric mean. A single delta is only rounded up, so it may be negative.
func Combine(deltas []float64) (int64, error) {
	switch len(deltas) {
	case 0:
		return 0, fmt.Errorf("no deltas to combine")
	case 1:
		return int64(math.Ceil(deltas[0])), nil
	}

	product := 1.0
	for _, d := range deltas {
		product *= d
	}

	if product < 0 {
		return 0, &GeomeanDomainError{Deltas: deltas, Product: product}
	}

	return int64(math.Ceil(math.Pow(product, 1/float64(len(deltas))))), nil
}

// exactSum returns the correctly rounded sum of xs using Shewchuk's
// partials.
func exactSum(xs []float64) float64 {
	var partials []float64

	for _, x := range xs {
		i := 0
		for _, y := range partials {
			if math.Abs(x) < math.Abs(y) {
				x, y = y, x
			}
			hi := x + y
			lo := y - (hi - x)
			if lo != 0 {
				partials[i] = lo
				i++
			}
			x = hi
		}
		partials = append(partials[:i], x)
	}

	n := len(partials)
	if n == 0 {
		return 0
	}

	n--
	hi := partials[n]
	var lo float64
	for n > 0 {
		x := hi
		n--
		y := partials[n]
		hi = x + y
		lo = y - (hi - x)
		if lo != 0 {
			break
		}
	}

	// Round half-even across the remaining partials.
	if n > 0 && ((lo < 0 && partials[n-1] < 0) || (lo > 0 && partials[n-1] > 0)) {
		y := lo * 2
		x := hi + y
		if y == x-hi {
			hi = x
		}
	}

	return hi
}
