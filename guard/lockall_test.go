package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestLockAll2_AccessesBoth(t *testing.T) {
	a := NewExclusive(1)
	b := NewExclusive(2)

	var sum int
	LockAll2(func(x *int, y *int) {
		sum = *x + *y
	}, a, b)
	assert.Equal(t, 3, sum)
}

func TestLockAll2_OppositeOrdersDoNotDeadlock(t *testing.T) {
	a := NewExclusive(0)
	b := NewExclusive(0)

	// Hammer the pair from both directions; a naive lock order would
	// deadlock almost immediately.
	var eg errgroup.Group
	eg.Go(func() error {
		for i := 0; i < 2000; i++ {
			LockAll2(func(x *int, y *int) { *x++ }, a, b)
		}
		return nil
	})
	eg.Go(func() error {
		for i := 0; i < 2000; i++ {
			LockAll2(func(y *int, x *int) { *y++ }, b, a)
		}
		return nil
	})
	require.NoError(t, eg.Wait())

	assert.Equal(t, 2000, Access(a, func(n *int) int { return *n }))
	assert.Equal(t, 2000, Access(b, func(n *int) int { return *n }))
}

func TestLockAll3_AccessesAll(t *testing.T) {
	a := NewExclusive("a")
	b := NewExclusive(1)
	c := NewExclusive(true)

	LockAll3(func(x *string, y *int, z *bool) {
		*x = "z"
		*y = 2
		*z = false
	}, a, b, c)

	assert.Equal(t, "z", Access(a, func(s *string) string { return *s }))
	assert.Equal(t, 2, Access(b, func(n *int) int { return *n }))
	assert.False(t, Access(c, func(v *bool) bool { return *v }))
}

func TestSwap(t *testing.T) {
	a := NewExclusive([]int{1, 2})
	b := NewExclusive([]int{3})

	Swap(a, b)

	assert.Equal(t, []int{3}, Access(a, func(s *[]int) []int { return *s }))
	assert.Equal(t, []int{1, 2}, Access(b, func(s *[]int) []int { return *s }))
}

func TestSwap_SameGuard(t *testing.T) {
	a := NewExclusive(5)
	Swap(a, a)
	assert.Equal(t, 5, Access(a, func(n *int) int { return *n }))
}
