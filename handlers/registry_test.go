package handlers

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopSession struct{}

func (nopSession) WriteText([]byte) error { return nil }
func (nopSession) Close() error           { return nil }

func TestRegistryAssignsPoolInOrder(t *testing.T) {
	r := NewRegistry(nil)

	names := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		names = append(names, r.Add(NewClient(nopSession{}, "127.0.0.1")))
	}

	assert.Equal(t, []string{"Mario", "Luigi", "Peach", "client-1", "client-2"}, names)
	assert.Equal(t, names, r.Names())
	assert.Equal(t, 5, r.Len())
}

func TestRegistryReusesFreedPoolName(t *testing.T) {
	r := NewRegistry([]string{"A", "B"})
	a := NewClient(nopSession{}, "")
	b := NewClient(nopSession{}, "")
	r.Add(a)
	r.Add(b)

	name, ok := r.Remove(a.ID)
	require.True(t, ok)
	assert.Equal(t, "A", name)

	c := NewClient(nopSession{}, "")
	assert.Equal(t, "A", r.Add(c))
	assert.Equal(t, []string{"B", "A"}, r.Names())
}

func TestRegistryFallbackCounterIsMonotonic(t *testing.T) {
	r := NewRegistry([]string{"Only"})
	r.Add(NewClient(nopSession{}, ""))
	x := NewClient(nopSession{}, "")
	assert.Equal(t, "client-1", r.Add(x))

	r.Remove(x.ID)
	assert.Equal(t, "client-2", r.Add(NewClient(nopSession{}, "")))
}

func TestRegistryRemoveTwice(t *testing.T) {
	r := NewRegistry(nil)
	c := NewClient(nopSession{}, "")
	r.Add(c)

	_, ok := r.Remove(c.ID)
	assert.True(t, ok)
	_, ok = r.Remove(c.ID)
	assert.False(t, ok)
	assert.Empty(t, r.Snapshot())
}

func TestRegistryConcurrentNamesStayUnique(t *testing.T) {
	r := NewRegistry(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := NewClient(nopSession{}, "")
			r.Add(c)
			if len(r.Snapshot())%2 == 0 {
				r.Remove(c.ID)
			}
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, name := range r.Names() {
		require.False(t, seen[name], fmt.Sprintf("duplicate name %s", name))
		seen[name] = true
	}
}
