package selection

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "rev1-trk2", Key("rev1", "trk2"))
	assert.NotEqual(t, Key("a-b", "c"), Key("a", "b-c"))
	assert.NotEqual(t, Key(`a\`, "b"), Key("a", `\b`))
	assert.Equal(t, `a\-b-c`, Key("a-b", "c"))
}

func TestSet_Toggle(t *testing.T) {
	s := NewSet()

	assert.True(t, s.Toggle("a"))
	assert.True(t, s.Has("a"))
	assert.False(t, s.Toggle("a"))
	assert.False(t, s.Has("a"))
	assert.Equal(t, 0, s.Len())
}

func TestSet_ToggleAllTwiceIsIdentityFromEmpty(t *testing.T) {
	listing := []string{"r1-a", "r1-b", "r2-a"}
	s := NewSet()

	assert.True(t, s.ToggleAll(listing))
	assert.Equal(t, listing, s.Ordered(listing))

	assert.False(t, s.ToggleAll(listing))
	assert.Equal(t, 0, s.Len())
}

func TestSet_ToggleAllRecomputesFromLiveListing(t *testing.T) {
	listing := []string{"r1-a", "r1-b", "r2-a"}
	s := NewSet()
	for _, k := range listing {
		s.Toggle(k)
	}
	assert.True(t, s.AllSelected(listing))

	// select-all checkbox turned off
	assert.False(t, s.ToggleAll(listing))
	assert.Equal(t, 0, s.Len())

	// listing changed before turning it back on
	live := []string{"r1-a", "r1-b", "r2-a", "r3-a", "r3-b"}
	assert.True(t, s.ToggleAll(live))
	assert.Equal(t, live, s.Ordered(live))
}

func TestSet_PartialSelectionThenSelectAll(t *testing.T) {
	listing := []string{"a", "b", "c"}
	s := NewSet("a")

	assert.False(t, s.AllSelected(listing))
	s.SetAll(true, listing)
	assert.True(t, s.AllSelected(listing))

	s.Remove("b")
	assert.False(t, s.AllSelected(listing))
	assert.Equal(t, []string{"a", "c"}, s.Ordered(listing))
}

func TestSet_AllSelectedEmptyListing(t *testing.T) {
	assert.False(t, NewSet().AllSelected(nil))
}

func TestSet_OrderedFollowsListing(t *testing.T) {
	s := NewSet("c", "a")
	assert.Equal(t, []string{"a", "c"}, s.Ordered([]string{"a", "b", "c"}))
	assert.Equal(t, []string{"c", "a"}, s.Ordered([]string{"c", "b", "a"}))
}

func TestSet_ConcurrentToggle(t *testing.T) {
	s := NewSet()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add("k")
			s.Has("k")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, s.Len())
}

func TestSet_ConcurrentToggleAll(t *testing.T) {
	listing := []string{"r1-t1", "r1-t2", "r1-t3"}
	s := NewSet()

	const workers = 100
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		checked int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.ToggleAll(listing) {
				mu.Lock()
				checked++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers/2, checked)
	assert.Equal(t, 0, s.Len())
}
