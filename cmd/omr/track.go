package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/onemorerev/client/internal/api"
	"github.com/onemorerev/client/pkg/core"
)

func newTrackCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Manage the deliverable tracks of a revision",
	}
	cmd.AddCommand(newTrackAddCmd(a))
	return cmd
}

func newTrackAddCmd(a *app) *cobra.Command {
	var name, file string
	cmd := &cobra.Command{
		Use:   "add <revision-id>",
		Short: "Add a track, optionally with its first file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			var upload *core.FileUpload
			if file != "" {
				up, err := api.EncodeFile("", file)
				if err != nil {
					return err
				}
				upload = &up
			}
			tr, err := a.client.CreateTrack(cmd.Context(), args[0], name, upload)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, tr, func() table {
				t := table{header: []string{"TRACK", "NAME", "FILE"}}
				f := "-"
				if tr.LatestFile != nil {
					f = tr.LatestFile.OriginalName
				} else if file != "" {
					f = filepath.Base(file)
				}
				t.add(tr.ID, tr.Name, f)
				return t
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Track name")
	cmd.Flags().StringVar(&file, "file", "", "Optional first file")
	return cmd
}
