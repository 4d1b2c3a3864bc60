package cache

import (
	"sort"
	"sync"

	"github.com/onemorerev/client/pkg/core"
)

// TrackFiles holds the files staged for the next revision submit, keyed by
// track ID. At most one file per track; a later Put replaces the earlier one.
// Staged files live only in memory.
type TrackFiles struct {
	m     sync.Mutex
	files map[string]core.FileUpload
}

func NewTrackFiles() *TrackFiles {
	return &TrackFiles{
		files: make(map[string]core.FileUpload),
	}
}

func (c *TrackFiles) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.files = make(map[string]core.FileUpload)
}

// Put stages f for its track, overriding TrackID with trackID.
func (c *TrackFiles) Put(trackID string, f core.FileUpload) {
	c.m.Lock()
	defer c.m.Unlock()
	f.TrackID = trackID
	c.files[trackID] = f
}

func (c *TrackFiles) Get(trackID string) (core.FileUpload, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if f, ok := c.files[trackID]; ok {
		return f, true
	}
	return core.FileUpload{}, false
}

func (c *TrackFiles) Remove(trackID string) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.files, trackID)
}

func (c *TrackFiles) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.files)
}

// Uploads returns the staged files ordered by track ID.
func (c *TrackFiles) Uploads() []core.FileUpload {
	c.m.Lock()
	defer c.m.Unlock()
	out := make([]core.FileUpload, 0, len(c.files))
	for _, f := range c.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackID < out[j].TrackID })
	return out
}
