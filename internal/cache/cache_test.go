package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onemorerev/client/pkg/core"
)

func TestTrackFiles_PutReplaces(t *testing.T) {
	c := NewTrackFiles()
	c.Put("t1", core.FileUpload{Filename: "a.png"})
	c.Put("t1", core.FileUpload{Filename: "b.png"})

	assert.Equal(t, 1, c.Len())
	f, ok := c.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "b.png", f.Filename)
	assert.Equal(t, "t1", f.TrackID)
}

func TestTrackFiles_RemoveAndReset(t *testing.T) {
	c := NewTrackFiles()
	c.Put("t1", core.FileUpload{Filename: "a.png"})
	c.Put("t2", core.FileUpload{Filename: "b.png"})

	c.Remove("t1")
	_, ok := c.Get("t1")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Reset()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Uploads())
}

func TestTrackFiles_UploadsOrdered(t *testing.T) {
	c := NewTrackFiles()
	c.Put("t3", core.FileUpload{Filename: "c"})
	c.Put("t1", core.FileUpload{Filename: "a"})
	c.Put("t2", core.FileUpload{Filename: "b"})

	var names []string
	for _, u := range c.Uploads() {
		names = append(names, u.Filename)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestTrackFiles_Concurrent(t *testing.T) {
	c := NewTrackFiles()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Put(fmt.Sprintf("t%d", i%10), core.FileUpload{Filename: fmt.Sprint(i)})
			_ = c.Uploads()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, c.Len())
}
