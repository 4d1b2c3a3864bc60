package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/onemorerev/client/internal/fallback"
	"github.com/onemorerev/client/internal/storage"
	"github.com/onemorerev/client/pkg/core"
)

// sampleProjects is shown when neither the backend nor a snapshot answers.
func sampleProjects() []core.Project {
	created := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	due := created.AddDate(0, 1, 0)
	return []core.Project{
		{
			ID:           "sample-1",
			Title:        "Sample: Coffee shop rebrand",
			Brief:        "Logo, cup sleeve and menu board",
			ClientName:   "Sample Client",
			DesignerName: "Sample Designer",
			Status:       "active",
			CreatedAt:    created,
			UpdatedAt:    created,
			Revisions: []core.RevisionSummary{
				{ID: "sample-r1", Number: 1, Status: core.StatusSubmitted, CreatedAt: created},
			},
			Payments: []core.Payment{
				{ID: "sample-pay-1", Title: "Deposit", Amount: 25000, Currency: "usd", Status: core.PaymentPaid},
				{ID: "sample-pay-2", Title: "Final delivery", Amount: 75000, Currency: "usd", DueDate: &due, Status: core.PaymentPending},
			},
		},
	}
}

// snapshotSource reads the last stored response for kind/key.
func snapshotSource[T any](backend storage.Backend, kind, key string) fallback.Source[T] {
	return fallback.Source[T]{
		Name: "snapshot",
		Fetch: func(ctx context.Context) (T, error) {
			var v T
			_, err := backend.Load(ctx, kind, key, &v)
			return v, err
		},
	}
}

// remember stores v as the latest snapshot, logging failures.
func (a *app) remember(ctx context.Context, kind, key string, v any) {
	if err := a.snapshots.Save(ctx, kind, key, v); err != nil {
		a.logger().Warn("Failed to store snapshot", "kind", kind, "key", key, "error", err)
	}
}

func (a *app) noteOrigin(cmd *cobra.Command, origin string) {
	if origin == "snapshot" || origin == "sample" {
		fmt.Fprintf(cmd.ErrOrStderr(), "note: backend unavailable, showing %s data\n", origin)
	}
}

func newProjectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "List and manage projects",
	}
	cmd.AddCommand(
		newProjectsListCmd(a),
		newProjectsInfoCmd(a),
		newProjectsCreateCmd(a),
		newProjectsHistoryCmd(a),
		newProjectsPaymentsCmd(a),
	)
	return cmd
}

func projectRows(projects []core.Project) func() table {
	return func() table {
		t := table{header: []string{"ID", "TITLE", "CLIENT", "DESIGNER", "STATUS", "REVISIONS", "OUTSTANDING"}}
		for _, p := range projects {
			t.add(p.ID, p.Title, p.ClientName, p.DesignerName, p.Status,
				strconv.Itoa(len(p.Revisions)), formatMoney(p.Outstanding(), currencyOf(p)))
		}
		return t
	}
}

func currencyOf(p core.Project) string {
	for _, pay := range p.Payments {
		if pay.Currency != "" {
			return pay.Currency
		}
	}
	return ""
}

func newProjectsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects (falls back to shared projects, the last snapshot, then sample data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := fallback.Load(ctx, a.logger(),
				fallback.Source[[]core.Project]{Name: "primary", Fetch: a.client.ListProjects},
				fallback.Source[[]core.Project]{Name: "shared", Fetch: a.client.ListSharedProjects},
				snapshotSource[[]core.Project](a.snapshots, storage.KindProjects, "all"),
				fallback.Static("sample", sampleProjects()),
			)
			if err != nil {
				return err
			}
			if res.Origin == "primary" || res.Origin == "shared" {
				a.remember(ctx, storage.KindProjects, "all", res.Value)
			}
			a.noteOrigin(cmd, res.Origin)
			return render(cmd.OutOrStdout(), a.format, res.Value, projectRows(res.Value))
		},
	}
}

func (a *app) loadProject(ctx context.Context, cmd *cobra.Command, id string) (core.Project, error) {
	res, err := fallback.Load(ctx, a.logger(),
		fallback.Source[core.Project]{Name: "primary", Fetch: func(ctx context.Context) (core.Project, error) {
			return a.client.ProjectInfo(ctx, id)
		}},
		snapshotSource[core.Project](a.snapshots, storage.KindProject, id),
	)
	if err != nil {
		return core.Project{}, err
	}
	if res.Origin == "primary" {
		a.remember(ctx, storage.KindProject, id, res.Value)
	}
	a.noteOrigin(cmd, res.Origin)
	return res.Value, nil
}

func newProjectsInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <project-id>",
		Short: "Show a project with its revisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loadProject(cmd.Context(), cmd, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, p, func() table {
				t := table{header: []string{"REVISION", "NUMBER", "STATUS", "CREATED"}}
				for _, r := range p.Revisions {
					t.add(r.ID, strconv.Itoa(r.Number), r.Status.String(), r.CreatedAt.Format(time.DateOnly))
				}
				return t
			})
		},
	}
}

func newProjectsCreateCmd(a *app) *cobra.Command {
	var req core.CreateProjectRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Title == "" {
				return fmt.Errorf("--title is required")
			}
			p, err := a.client.CreateProject(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.logger().Info("Project created", "project", p.ID)
			return render(cmd.OutOrStdout(), a.format, p, projectRows([]core.Project{p}))
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "Project title")
	cmd.Flags().StringVar(&req.Brief, "brief", "", "Short description of the work")
	cmd.Flags().StringVar(&req.ClientEmail, "client-email", "", "Email of the client to invite")
	cmd.Flags().StringVar(&req.DesignerName, "designer", "", "Designer display name")
	return cmd
}

func (a *app) loadHistory(ctx context.Context, cmd *cobra.Command, projectID string) ([]core.HistoryEntry, error) {
	res, err := fallback.Load(ctx, a.logger(),
		fallback.Source[[]core.HistoryEntry]{Name: "primary", Fetch: func(ctx context.Context) ([]core.HistoryEntry, error) {
			return a.client.ProjectHistory(ctx, projectID)
		}},
		snapshotSource[[]core.HistoryEntry](a.snapshots, storage.KindHistory, projectID),
	)
	if err != nil {
		return nil, err
	}
	if res.Origin == "primary" {
		a.remember(ctx, storage.KindHistory, projectID, res.Value)
	}
	a.noteOrigin(cmd, res.Origin)
	return res.Value, nil
}

func newProjectsHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <project-id>",
		Short: "List every file uploaded to the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.loadHistory(cmd.Context(), cmd, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, entries, func() table {
				t := table{header: []string{"KEY", "REVISION", "TRACK", "FILE", "TYPE", "SIZE", "UPLOADED"}}
				for _, e := range entries {
					t.add(historyKey(e), strconv.Itoa(e.RevisionNumber), e.TrackName, e.File.OriginalName,
						e.File.ContentType, strconv.FormatInt(e.File.Size, 10), e.File.UploadedAt.Format(time.DateTime))
				}
				return t
			})
		},
	}
}

func newProjectsPaymentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "payments <project-id>",
		Short: "Show payment milestones and the outstanding amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loadProject(cmd.Context(), cmd, args[0])
			if err != nil {
				return err
			}
			if err := render(cmd.OutOrStdout(), a.format, p.Payments, func() table {
				t := table{header: []string{"ID", "TITLE", "AMOUNT", "DUE", "STATUS"}}
				for _, pay := range p.Payments {
					due := "-"
					if pay.DueDate != nil {
						due = pay.DueDate.Format(time.DateOnly)
					}
					t.add(pay.ID, pay.Title, formatMoney(pay.Amount, pay.Currency), due, string(pay.Status))
				}
				return t
			}); err != nil {
				return err
			}
			if a.format == formatTable {
				fmt.Fprintf(cmd.OutOrStdout(), "\nOutstanding: %s\n", formatMoney(p.Outstanding(), currencyOf(p)))
			}
			return nil
		},
	}
}
