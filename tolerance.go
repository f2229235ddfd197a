package rhscache

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Tolerance holds the relative and absolute thresholds used by every
// comparison between an incoming RHS vector and a cached one.
type Tolerance struct {
	RTol float64
	ATol float64
}

// close reports whether a is within tolerance of b, using the elementwise
// rule |a - b| <= atol + rtol*|b|.
func (t Tolerance) close(a, b float64) bool {
	return math.Abs(a-b) <= t.ATol+t.RTol*math.Abs(b)
}

// IsZero reports whether every component of v is within tolerance of zero.
func (t Tolerance) IsZero(v []float64) bool {
	for _, x := range v {
		if !t.close(x, 0) {
			return false
		}
	}

	return true
}

// Equal reports whether v and u are elementwise equivalent.
//
// v and u must have the same length.
func (t Tolerance) Equal(v, u []float64) bool {
	for i, x := range v {
		if !t.close(x, u[i]) {
			return false
		}
	}

	return true
}

// Negated reports whether v is elementwise equivalent to -u.
func (t Tolerance) Negated(v, u []float64) bool {
	for i, x := range v {
		if !t.close(x, -u[i]) {
			return false
		}
	}

	return true
}

// Parallel reports whether v and u are parallel and, if so, the factor
// scaler such that v ≈ scaler*u.
//
// The vectors are parallel when |v·u| is within tolerance of ‖v‖‖u‖. A
// zero-norm u never matches since the scale factor is undefined. Parallel
// panics if v and u differ in length.
func (t Tolerance) Parallel(v, u []float64) (scaler float64, ok bool) {
	dot := floats.Dot(v, u)
	nu := floats.Norm(u, 2)

	if !t.isclose(math.Abs(dot), floats.Norm(v, 2)*nu) {
		return 0, false
	}
	if nu <= 0 {
		return 0, false
	}

	return dot / floats.Dot(u, u), true
}

// isclose is the symmetric scalar rule
// |a - b| <= max(rtol*max(|a|, |b|), atol).
func (t Tolerance) isclose(a, b float64) bool {
	if a == b {
		return true
	}

	return math.Abs(a-b) <= math.Max(t.RTol*math.Max(math.Abs(a), math.Abs(b)), t.ATol)
}

// match applies the equality, negation and parallelism tests in that order
// and returns the first one that succeeds. For ParHit, scaler is the factor
// to apply to the cached solution.
func (t Tolerance) match(v, u []float64) (o Outcome, scaler float64) {
	if t.Equal(v, u) {
		return EqHit, 1
	}
	if t.Negated(v, u) {
		return NegHit, -1
	}
	if s, ok := t.Parallel(v, u); ok {
		return ParHit, s
	}

	return Miss, 0
}
