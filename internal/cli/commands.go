package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/brainysmurf/PowerSchoolIntegrator/internal/layout"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/records"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/service"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/web"
)

func (a *app) pgCommand() *cobra.Command {
	var layoutKey, query, out string

	cmd := &cobra.Command{
		Use:   "pg [QUERY_ARG...]",
		Short: "Render records read from PostgreSQL",
		Long: "pg runs --query, which must return (key, field, value) rows. Rows\n" +
			"sharing a key become one record; repeated fields ending in _ collect\n" +
			"into numbered columns. Extra arguments are passed as query parameters.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireDatabase(); err != nil {
				return err
			}

			l, err := layout.Lookup(layoutKey)
			if err != nil {
				return err
			}
			tbl, err := l.NewTable()
			if err != nil {
				return err
			}

			pool, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Database.QueryTimeout)
			defer cancel()

			queryArgs := make([]interface{}, len(args))
			for i, arg := range args {
				queryArgs[i] = arg
			}
			entries, err := records.QueryEntries(ctx, pool, query, queryArgs...)
			if err != nil {
				return err
			}

			recs, err := records.Group(entries, tbl.Schema())
			if err != nil {
				return err
			}
			slog.Info("records loaded", "entries", len(entries), "records", len(recs))

			return a.export(cmd.Context(), layoutKey, recs, out)
		},
	}
	cmd.Flags().SortFlags = false
	cmd.Flags().StringVarP(&layoutKey, "layout", "l", "", "layout key (see \"layouts\")")
	cmd.Flags().StringVarP(&query, "query", "q", "", "SQL returning key, field, value columns")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the CSV here instead of standard output")
	_ = cmd.MarkFlagRequired("layout")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

// connect opens a pool sized from the database settings.
func (a *app) connect(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(a.cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(a.cfg.Database.MaxConns)
	poolConfig.MinConns = int32(a.cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = a.cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = a.cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(a.cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve exports over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			slog.Info("configuration loaded", "config", cfg.String())
			slog.Info("layouts registered", "count", layout.Count(), "groups", len(layout.Groups()))

			svc := service.New(service.OptionsFromConfig(cfg.Export))
			server := web.NewServer(svc, *cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			slog.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if status := svc.LimiterStatus(); status.Active > 0 {
				slog.Info("waiting for exports to complete", "active", status.Active)
				if err := svc.WaitForExports(shutdownCtx); err != nil {
					slog.Warn("exports did not complete in time", "error", err)
				} else {
					slog.Info("all exports completed")
				}
			}

			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			slog.Info("server stopped")
			return nil
		},
	}
}
