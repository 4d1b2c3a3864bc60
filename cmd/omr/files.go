package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/onemorerev/client/internal/selection"
	"github.com/onemorerev/client/pkg/core"
)

func historyKey(e core.HistoryEntry) string {
	return selection.Key(e.RevisionID, e.TrackID)
}

// downloadListing keeps the newest file per revision track, in first-seen order.
func downloadListing(entries []core.HistoryEntry) ([]selection.Item, []string) {
	latest := make(map[string]core.HistoryEntry, len(entries))
	var keys []string
	for _, e := range entries {
		key := historyKey(e)
		prev, seen := latest[key]
		if !seen {
			keys = append(keys, key)
		}
		if !seen || e.File.UploadedAt.After(prev.File.UploadedAt) {
			latest[key] = e
		}
	}

	items := make([]selection.Item, 0, len(keys))
	used := make(map[string]int, len(keys))
	for _, key := range keys {
		e := latest[key]
		items = append(items, selection.Item{
			Key:      key,
			Filename: e.File.Filename,
			Name:     uniqueName(used, saveName(e)),
		})
	}
	return items, keys
}

// saveName is the local file name for a history entry: revision number, track ID
// and the uploaded name.
func saveName(e core.HistoryEntry) string {
	name := e.File.OriginalName
	if name == "" {
		name = e.File.Filename
	}
	return fmt.Sprintf("r%d-%s-%s", e.RevisionNumber, filepath.Base(e.TrackID), filepath.Base(name))
}

// uniqueName suffixes repeated names so no two downloads share a destination path.
func uniqueName(used map[string]int, name string) string {
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	return uniqueName(used, fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n+1, ext))
}

func newFilesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List and download project files",
	}
	cmd.AddCommand(newFilesListCmd(a), newFilesDownloadCmd(a))
	return cmd
}

func newFilesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List the latest file of every revision track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.loadHistory(cmd.Context(), cmd, args[0])
			if err != nil {
				return err
			}
			items, _ := downloadListing(entries)
			return render(cmd.OutOrStdout(), a.format, items, func() table {
				t := table{header: []string{"KEY", "FILE", "SAVE AS"}}
				for _, it := range items {
					t.add(it.Key, it.Filename, it.Name)
				}
				return t
			})
		},
	}
}

func newFilesDownloadCmd(a *app) *cobra.Command {
	var (
		all    bool
		outDir string
		delay  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "download <project-id> [key...]",
		Short: "Download the selected files one after another",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			entries, err := a.loadHistory(ctx, cmd, args[0])
			if err != nil {
				return err
			}
			items, listing := downloadListing(entries)

			set := selection.NewSet()
			if all {
				set.ToggleAll(listing)
			}
			for _, key := range args[1:] {
				set.Add(key)
			}
			selected := selection.Filter(items, set)
			if len(selected) == 0 {
				return fmt.Errorf("no files selected, pass keys or --all")
			}

			if outDir == "" {
				outDir = a.download.OutputDir
			}
			if !cmd.Flags().Changed("delay") {
				delay = a.download.Delay
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			bulk := &selection.BulkDownloader{
				Downloader: selection.DownloaderFunc(func(ctx context.Context, it selection.Item) error {
					data, err := a.client.FetchFile(ctx, it.Filename)
					if err != nil {
						return err
					}
					return os.WriteFile(filepath.Join(outDir, it.Name), data, 0o644)
				}),
				Delay:  delay,
				Logger: a.logger(),
			}
			n, err := bulk.Run(ctx, selected)
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d of %d files to %s\n", n, len(selected), outDir)
			return err
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Select every file in the listing")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default from config)")
	cmd.Flags().DurationVar(&delay, "delay", selection.DefaultDelay, "Pause between downloads")
	return cmd
}
