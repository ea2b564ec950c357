package mathhelp

import "golang.org/x/exp/constraints"

func BetweenInc[T constraints.Ordered](f, p, q T) bool {
	if p <= q {
		return p <= f && f <= q
	}
	return q <= f && f <= p
}

func Pow2(n uint) uint {
	return 1 << n
}

func Clamp[T constraints.Ordered](f, p, q T) T {
	if f < p {
		return p
	}
	if f > q {
		return q
	}
	return f
}
