package guard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestExclusive_Access(t *testing.T) {
	g := NewExclusive(41)

	g.Access(func(n *int) {
		*n++
	})

	got := Access(g, func(n *int) int { return *n })
	assert.Equal(t, 42, got)
}

func TestExclusive_AccessIsMutuallyExclusive(t *testing.T) {
	g := NewExclusive(0)

	var eg errgroup.Group
	for i := 0; i < 8; i++ {
		eg.Go(func() error {
			for j := 0; j < 1000; j++ {
				g.Access(func(n *int) {
					*n++
				})
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	assert.Equal(t, 8000, Access(g, func(n *int) int { return *n }))
}

func TestExclusive_AccessTo(t *testing.T) {
	g := NewExclusive([]string{"a"})

	p := g.AccessTo()
	*p.Object() = append(*p.Object(), "b")
	p.Release()

	// Double release is a no-op.
	p.Release()

	g.Access(func(s *[]string) {
		assert.Equal(t, []string{"a", "b"}, *s)
	})
}

func TestExclusive_ProxyHoldsLock(t *testing.T) {
	g := NewExclusive(0)

	p := g.AccessTo()

	acquired := make(chan struct{})
	go func() {
		g.Access(func(n *int) {
			*n = 7
		})
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("Access succeeded while a proxy held the lock")
	default:
	}

	p.Release()
	<-acquired
	assert.Equal(t, 7, Access(g, func(n *int) int { return *n }))
}

func TestShared_ConcurrentReaders(t *testing.T) {
	g := NewShared(123)

	inside := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.ConstAccess(func(n *int) {
				inside <- struct{}{}
				<-release
			})
		}()
	}

	// Both readers must be inside ConstAccess at the same time.
	<-inside
	<-inside
	close(release)
	wg.Wait()
}

func TestShared_WriterExcludesReaders(t *testing.T) {
	g := NewShared(0)

	p := g.AccessTo() // write lock held

	read := make(chan int)
	go func() {
		g.ConstAccess(func(n *int) {
			read <- *n
		})
	}()

	select {
	case <-read:
		t.Fatal("reader entered while write lock held")
	default:
	}

	*p.Object() = 9
	p.Release()
	assert.Equal(t, 9, <-read)
}

func TestShared_ResultAccess(t *testing.T) {
	g := NewShared(map[string]int{"x": 1})

	got := ConstSharedAccess(g, func(m *map[string]int) int {
		return (*m)["x"]
	})
	assert.Equal(t, 1, got)

	SharedAccess(g, func(m *map[string]int) struct{} {
		(*m)["y"] = 2
		return struct{}{}
	})
	assert.Equal(t, 2, ConstSharedAccess(g, func(m *map[string]int) int {
		return (*m)["y"]
	}))
}
