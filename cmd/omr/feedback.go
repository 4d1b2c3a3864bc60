package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/onemorerev/client/internal/pin"
	"github.com/onemorerev/client/pkg/core"
)

func newFeedbackCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Read and place review comments on track images",
	}
	cmd.AddCommand(
		newFeedbackListCmd(a),
		newFeedbackAddCmd(a),
		newFeedbackPinsCmd(a),
	)
	return cmd
}

func feedbackRows(feedbacks []core.Feedback) func() table {
	return func() table {
		t := table{header: []string{"ID", "TRACK", "X", "Y", "CONTENT", "REPLY", "CREATED"}}
		for _, f := range feedbacks {
			reply := "-"
			if f.Reply != nil {
				reply = *f.Reply
			}
			t.add(f.ID, f.TrackID, formatCoord(f.NormalX), formatCoord(f.NormalY),
				f.Content, reply, f.CreatedAt.Format(time.DateTime))
		}
		return t
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func newFeedbackListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [revision-id]",
		Short: "List the feedback left on a revision",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd, args)
			if err != nil {
				return err
			}
			feedbacks := s.Board().Feedbacks()
			return render(cmd.OutOrStdout(), a.format, feedbacks, feedbackRows(feedbacks))
		},
	}
}

func newFeedbackAddCmd(a *app) *cobra.Command {
	var (
		trackID string
		click   pin.Point
		rect    pin.Rect
	)
	cmd := &cobra.Command{
		Use:   "add [revision-id] <comment>",
		Short: "Place a pin on a track image and save a comment",
		Long: "Place a pin at --x/--y inside the image rect given by --left/--top/--width/--height.\n" +
			"With the default 1x1 rect the click is already normalized.\n" +
			"A click on existing feedback shows it instead of adding a new pin.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if trackID == "" {
				return fmt.Errorf("--track is required")
			}
			content := args[len(args)-1]
			s, err := a.openSession(cmd, args[:len(args)-1])
			if err != nil {
				return err
			}
			if s.Stale() {
				return fmt.Errorf("cannot add feedback while offline")
			}
			p, result, err := s.Annotate(cmd.Context(), trackID, click, rect, content)
			if err != nil {
				return err
			}
			if result == pin.Reopened {
				f, _ := s.Board().Opened()
				fmt.Fprintln(cmd.ErrOrStderr(), "note: existing feedback at this position")
				return render(cmd.OutOrStdout(), a.format, f, feedbackRows([]core.Feedback{f}))
			}
			a.logger().Info("Feedback saved", "revision", s.Revision().ID, "track", trackID, "pin", p.ID)
			return render(cmd.OutOrStdout(), a.format, p, pinRows([]pin.Pin{p}))
		},
	}
	cmd.Flags().StringVar(&trackID, "track", "", "Track the image belongs to")
	cmd.Flags().Float64Var(&click.X, "x", 0, "Click X in viewport pixels")
	cmd.Flags().Float64Var(&click.Y, "y", 0, "Click Y in viewport pixels")
	cmd.Flags().Float64Var(&rect.Left, "left", 0, "Image rect left edge")
	cmd.Flags().Float64Var(&rect.Top, "top", 0, "Image rect top edge")
	cmd.Flags().Float64Var(&rect.Width, "width", 1, "Image rect width")
	cmd.Flags().Float64Var(&rect.Height, "height", 1, "Image rect height")
	return cmd
}

func pinRows(pins []pin.Pin) func() table {
	return func() table {
		t := table{header: []string{"ID", "TRACK", "X", "Y", "NORMAL X", "NORMAL Y", "NEW"}}
		for _, p := range pins {
			t.add(p.ID, p.TrackID, strconv.FormatFloat(p.X, 'f', 1, 64), strconv.FormatFloat(p.Y, 'f', 1, 64),
				formatCoord(p.NormalX), formatCoord(p.NormalY), strconv.FormatBool(p.IsNew))
		}
		return t
	}
}

// parseSizes reads "track=WIDTHxHEIGHT" rendering sizes.
func parseSizes(specs []string) (map[string]pin.Size, error) {
	sizes := make(map[string]pin.Size, len(specs))
	for _, spec := range specs {
		trackID, dims, ok := strings.Cut(spec, "=")
		if !ok || trackID == "" {
			return nil, fmt.Errorf("invalid size %q, want <track-id>=<width>x<height>", spec)
		}
		w, h, ok := strings.Cut(strings.ToLower(dims), "x")
		if !ok {
			return nil, fmt.Errorf("invalid size %q, want <track-id>=<width>x<height>", spec)
		}
		width, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid width in %q: %w", spec, err)
		}
		height, err := strconv.ParseFloat(h, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid height in %q: %w", spec, err)
		}
		sizes[trackID] = pin.Size{Width: width, Height: height}
	}
	return sizes, nil
}

func newFeedbackPinsCmd(a *app) *cobra.Command {
	var sizeSpecs []string
	cmd := &cobra.Command{
		Use:   "pins [revision-id]",
		Short: "Show feedback pins positioned for the given image sizes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sizes, err := parseSizes(sizeSpecs)
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd, args)
			if err != nil {
				return err
			}
			pins := s.Board().Pins(sizes)
			return render(cmd.OutOrStdout(), a.format, pins, pinRows(pins))
		},
	}
	cmd.Flags().StringArrayVar(&sizeSpecs, "size", nil, "Rendered image size per track, e.g. t1=800x600")
	return cmd
}
