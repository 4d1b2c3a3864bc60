package apitest

import (
	"sort"

	"github.com/onemorerev/client/pkg/core"
)

func sortProjects(ps []core.Project) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].CreatedAt.Before(ps[j].CreatedAt)
		}
		return ps[i].ID < ps[j].ID
	})
}

func sortHistory(es []core.HistoryEntry) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].RevisionNumber != es[j].RevisionNumber {
			return es[i].RevisionNumber > es[j].RevisionNumber
		}
		if es[i].TrackName != es[j].TrackName {
			return es[i].TrackName < es[j].TrackName
		}
		return es[i].File.UploadedAt.Before(es[j].File.UploadedAt)
	})
}
