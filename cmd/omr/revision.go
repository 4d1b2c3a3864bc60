package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/onemorerev/client/internal/review"
	"github.com/onemorerev/client/internal/selection"
	"github.com/onemorerev/client/pkg/core"
)

// openSession opens the revision named by args[0], or the one shared
// through the access code when no ID is given.
func (a *app) openSession(cmd *cobra.Command, args []string) (*review.Session, error) {
	opts := review.Options{
		AccessCode: a.accessCode,
		Snapshots:  a.snapshots,
		Logger:     a.logger(),
	}
	if len(args) > 0 {
		opts.RevisionID = args[0]
	}
	s, err := review.Open(cmd.Context(), a.client, opts)
	if err != nil {
		return nil, err
	}
	if s.Stale() {
		a.noteOrigin(cmd, review.OriginSnapshot)
	}
	return s, nil
}

func revisionRows(rev core.Revision) func() table {
	return func() table {
		t := table{header: []string{"TRACK", "NAME", "LATEST FILE", "TYPE", "UPLOADED", "FEEDBACK"}}
		counts := make(map[string]int)
		for _, f := range rev.Feedbacks {
			counts[f.TrackID]++
		}
		for _, tr := range rev.Tracks {
			file, typ, uploaded := "-", "-", "-"
			if tr.LatestFile != nil {
				file = tr.LatestFile.OriginalName
				typ = tr.LatestFile.ContentType
				uploaded = tr.LatestFile.UploadedAt.Format(time.DateTime)
			}
			t.add(tr.ID, tr.Name, file, typ, uploaded, strconv.Itoa(counts[tr.ID]))
		}
		return t
	}
}

func (a *app) printRevision(cmd *cobra.Command, rev core.Revision) error {
	if a.format == formatTable {
		fmt.Fprintf(cmd.OutOrStdout(), "Revision %d (%s) - %s\n\n", rev.Number, rev.ID, rev.Status)
	}
	return render(cmd.OutOrStdout(), a.format, rev, revisionRows(rev))
}

func newRevisionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revision",
		Short: "Show revisions and move them through prepare, submitted and reviewed",
	}
	cmd.AddCommand(
		newRevisionShowCmd(a),
		newRevisionStageCmd(a),
		newRevisionSubmitCmd(a),
		newRevisionReviewDoneCmd(a),
		newRevisionNewCmd(a),
	)
	return cmd
}

func newRevisionShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [revision-id]",
		Short: "Show a revision and its tracks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, args)
			if err != nil {
				return err
			}
			return a.printRevision(cmd, s.Revision())
		},
	}
}

// parseFileArgs splits "track=path" arguments.
func parseFileArgs(specs []string) (map[string]string, []string, error) {
	files := make(map[string]string, len(specs))
	order := make([]string, 0, len(specs))
	for _, spec := range specs {
		trackID, path, ok := strings.Cut(spec, "=")
		if !ok || trackID == "" || path == "" {
			return nil, nil, fmt.Errorf("invalid file %q, want <track-id>=<path>", spec)
		}
		if _, dup := files[trackID]; !dup {
			order = append(order, trackID)
		}
		files[trackID] = path
	}
	return files, order, nil
}

// stageAll stages every "track=path" argument, then drops the excluded tracks
// from the batch.
func stageAll(s *review.Session, specs, exclude []string) error {
	files, order, err := parseFileArgs(specs)
	if err != nil {
		return err
	}
	for _, trackID := range order {
		if _, err := s.Stage(trackID, files[trackID]); err != nil {
			return err
		}
	}
	if len(exclude) > 0 {
		drop := selection.NewSet()
		for _, trackID := range exclude {
			drop.Add(selection.Key(s.Revision().ID, trackID))
		}
		s.Unstage(drop)
	}
	return nil
}

func uploadRows(uploads []core.FileUpload) func() table {
	return func() table {
		t := table{header: []string{"TRACK", "FILE", "TYPE", "ENCODED BYTES"}}
		for _, u := range uploads {
			t.add(u.TrackID, u.Filename, u.ContentType, strconv.Itoa(len(u.Content)))
		}
		return t
	}
}

func newRevisionStageCmd(a *app) *cobra.Command {
	var exclude []string
	cmd := &cobra.Command{
		Use:   "stage <revision-id> <track-id>=<path>...",
		Short: "Check and encode files for a submit without sending them",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, args[:1])
			if err != nil {
				return err
			}
			if err := stageAll(s, args[1:], exclude); err != nil {
				return err
			}
			uploads := s.Files.Uploads()
			return render(cmd.OutOrStdout(), a.format, uploads, uploadRows(uploads))
		},
	}
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Track IDs to drop from the batch")
	return cmd
}

func newRevisionSubmitCmd(a *app) *cobra.Command {
	var exclude []string
	cmd := &cobra.Command{
		Use:   "submit <revision-id> [<track-id>=<path>...]",
		Short: "Upload files and submit the revision for review",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, args[:1])
			if err != nil {
				return err
			}
			if err := stageAll(s, args[1:], exclude); err != nil {
				return err
			}
			staged := s.Files.Len()
			rev, err := s.Submit(cmd.Context())
			if err != nil {
				return err
			}
			a.logger().Info("Revision submitted", "revision", rev.ID, "files", staged)
			return a.printRevision(cmd, rev)
		},
	}
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Track IDs to drop from the batch")
	return cmd
}

func newRevisionReviewDoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "review-done [revision-id]",
		Short: "Mark a submitted revision as reviewed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, args)
			if err != nil {
				return err
			}
			rev, err := s.MarkReviewed(cmd.Context())
			if err != nil {
				return err
			}
			return a.printRevision(cmd, rev)
		},
	}
}

func newRevisionNewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new <reviewed-revision-id>",
		Short: "Open the next revision after a reviewed one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, args)
			if err != nil {
				return err
			}
			rev, err := s.CreateNext(cmd.Context())
			if err != nil {
				return err
			}
			return a.printRevision(cmd, rev)
		},
	}
}
