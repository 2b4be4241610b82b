package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"leaddesk-engine/internal/config"
	"leaddesk-engine/internal/domain"
	"leaddesk-engine/internal/events"
	"leaddesk-engine/internal/export"
	"leaddesk-engine/internal/leads"
	"leaddesk-engine/internal/options"
	"leaddesk-engine/internal/secrets"
	"leaddesk-engine/internal/store"
	"leaddesk-engine/internal/views"
)

// filterFlags are shared by `leads ls` and `export`.
type filterFlags struct {
	search, status, user, team string
	from, to                   string
	page, pageSize             int
}

func (f *filterFlags) register(cmd *cobra.Command, paging bool) {
	cmd.Flags().StringVar(&f.search, "search", "", "free-text search")
	cmd.Flags().StringVar(&f.status, "status", leads.All, "status id")
	cmd.Flags().StringVar(&f.user, "user", leads.All, "assigned user id")
	cmd.Flags().StringVar(&f.team, "team", leads.All, "team id")
	cmd.Flags().StringVar(&f.from, "from", "", "created on or after (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "created on or before (YYYY-MM-DD)")
	if paging {
		cmd.Flags().IntVar(&f.page, "page", 1, "page number")
		cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "rows per page (5, 10 or 15)")
	}
}

func (f *filterFlags) state(cfg config.Config) (leads.FilterState, error) {
	fs := leads.DefaultFilterState()
	fs.SearchText = strings.TrimSpace(f.search)
	fs.StatusID = f.status
	fs.AssignedUserID = f.user
	fs.TeamID = f.team
	fs.PageSize = cfg.Listing.DefaultPageSize
	if f.pageSize != 0 {
		fs.PageSize = f.pageSize
	}
	if !leads.ValidPageSize(fs.PageSize) {
		return fs, fmt.Errorf("%w: %d (want one of %v)", leads.ErrInvalidPageSize, fs.PageSize, leads.PageSizes)
	}
	if f.page > 0 {
		fs.Page = f.page
	}
	var err error
	if fs.StartDate, err = parseDate(f.from); err != nil {
		return fs, fmt.Errorf("--from: %w", err)
	}
	if fs.EndDate, err = parseDate(f.to); err != nil {
		return fs, fmt.Errorf("--to: %w", err)
	}
	return fs, nil
}

func parseDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(leads.DateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func newLeadsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "Browse leads",
	}

	var ff filterFlags
	ls := &cobra.Command{
		Use:   "ls",
		Short: "List one page of leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			fs, err := ff.state(cfg)
			if err != nil {
				return err
			}
			client, err := newClient(cfg, fixedAccount(cfg))
			if err != nil {
				return err
			}
			c := leads.NewController(client, leads.Options{
				Role:    domain.ParseRole(cfg.Auth.Role),
				UserID:  cfg.Auth.UserID,
				Initial: &fs,
			})
			if err := c.Refresh(cmd.Context()); err != nil {
				return errors.New(c.View().ErrMessage)
			}
			v := c.View()
			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), v)
			}
			renderLeads(cmd.OutOrStdout(), v, time.Now())
			return nil
		},
	}
	ff.register(ls, true)
	cmd.AddCommand(ls)
	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	var ff filterFlags
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every lead matching the filters to an .xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			fs, err := ff.state(cfg)
			if err != nil {
				return err
			}
			client, err := newClient(cfg, fixedAccount(cfg))
			if err != nil {
				return err
			}
			// Exports honour the same agent scoping as listings.
			c := leads.NewController(client, leads.Options{
				Role:    domain.ParseRole(cfg.Auth.Role),
				UserID:  cfg.Auth.UserID,
				Initial: &fs,
			})

			asm := export.NewAssembler(client, export.Options{MaxRows: cfg.Export.MaxRows})
			f, err := asm.ExportAll(cmd.Context(), c.Filters())
			if err != nil {
				return errors.New(export.FailedMessage)
			}
			if out == "" {
				out = cfg.ExportDir(app.dataDir())
			}
			path, err := export.WriteFile(out, f)
			if err != nil {
				return errors.New(export.FailedMessage)
			}
			recordExport(cmd.Context(), app, f, path)

			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"path": path, "file": f})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d leads to %s\n", f.Rows, path)
			if f.Truncated() {
				fmt.Fprintf(cmd.OutOrStdout(), "Only the first %d of %d leads fit under export.max_rows\n", f.Rows, f.Total)
			}
			return nil
		},
	}
	ff.register(cmd, false)
	cmd.Flags().StringVar(&out, "out", "", "output directory (default export.dir)")
	return cmd
}

// recordExport adds f to the export history. A locked database (engine
// running) only costs the history entry.
func recordExport(ctx context.Context, app *App, f export.File, path string) {
	db, err := store.Open(filepath.Join(app.dataDir(), "leaddesk.db"))
	if err != nil {
		return
	}
	defer db.Close()
	_, _ = store.RecordExport(ctx, db.Pool, store.ExportRecord{
		FileName:  f.Name,
		Path:      path,
		Query:     f.Query,
		Rows:      f.Rows,
		Total:     f.Total,
		CreatedAt: f.CreatedAt,
	})
}

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print a notice whenever new leads arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			role := domain.ParseRole(cfg.Auth.Role)
			if !role.CanWatchNewLeads() {
				return fmt.Errorf("%w: %s cannot watch for new leads", leads.ErrForbidden, role)
			}
			client, err := newClient(cfg, fixedAccount(cfg))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			hub := events.NewHub()
			sub := hub.Subscribe()
			defer hub.Unsubscribe(sub)

			reg := views.NewRegistry(ctx, views.Deps{
				Backend:      client,
				Hub:          hub,
				PollInterval: cfg.PollInterval,
			})
			defer reg.CloseAll()

			v, err := reg.Create(ctx, views.Session{Role: role, UserID: cfg.Auth.UserID}, nil)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Watching for new leads every %s (Ctrl+C to stop)\n", cfg.PollInterval())
			return watchLoop(ctx, w, sub, v, app.JSON)
		},
	}
}

func watchLoop(ctx context.Context, w io.Writer, sub <-chan string, v *views.View, asJSON bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub:
			if !ok {
				return nil
			}
			if asJSON {
				fmt.Fprintln(w, msg)
				continue
			}
			e, err := events.Parse(msg)
			if err != nil || e.Type != events.TypeLeadsNew {
				continue
			}
			b := v.Notice.Snapshot()
			fmt.Fprintf(w, "%s  %s\n", e.At.Local().Format("15:04:05"), newLeadsNotice(b.PendingDelta))
			// The terminal has no dismiss button; acknowledge right away.
			v.Notice.Dismiss()
		}
	}
}

func newLeadsNotice(delta int) string {
	if delta == 1 {
		return "1 new lead has been added"
	}
	return fmt.Sprintf("%d new leads have been added", delta)
}

func newOptionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Show the status, user and team filter values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			client, err := newClient(cfg, fixedAccount(cfg))
			if err != nil {
				return err
			}
			svc := options.Service{Loader: client}
			if db, err := store.Open(filepath.Join(app.dataDir(), "leaddesk.db")); err == nil {
				defer db.Close()
				svc.DB = db.Pool
			}
			res, err := svc.Load(cmd.Context())
			if err != nil {
				return err
			}
			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			renderOptions(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func newTokenCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the backend API token in the OS keychain",
	}

	set := &cobra.Command{
		Use:   "set [token]",
		Short: "Store the API token (reads stdin when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			tok := ""
			if len(args) == 1 {
				tok = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				tok = line
			}
			if err := secrets.SetToken(cfg.Auth.KeyringAccount, tok); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token stored for account %q\n", cfg.Auth.KeyringAccount)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			if err := secrets.DeleteToken(cfg.Auth.KeyringAccount); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token removed for account %q\n", cfg.Auth.KeyringAccount)
			return nil
		},
	}

	cmd.AddCommand(set, del)
	return cmd
}
