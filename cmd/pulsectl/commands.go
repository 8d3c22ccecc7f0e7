/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/adapters/telegram"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/config"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/fields"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/jobs"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/logger"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/repo"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/services"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	output string
	tz     string
}

type app struct {
	cfg  config.Config
	log  zerolog.Logger
	db   *repo.DB
	repo *repo.Repository
	svc  *services.Service
}

func (o *rootOptions) open(ctx context.Context) (*app, error) {
	if o.output != "table" && o.output != "json" {
		return nil, fmt.Errorf("unknown output format %q", o.output)
	}
	cfg := config.Load()
	if o.tz != "" {
		cfg.TZ = o.tz
	}
	log := logger.New(cfg)
	aliases, err := fields.LoadAliases(cfg.FieldAliasesFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	db := repo.MustOpen(ctx, cfg, log)
	r := repo.NewRepository(db, log, aliases)
	opts := []services.Option{services.WithRunStore(r)}
	if tg := telegram.NewClient(cfg, log); tg.Enabled() && len(cfg.TelegramChatIDs) > 0 {
		opts = append(opts, services.WithNotifier(tg))
	}
	return &app{cfg: cfg, log: log, db: db, repo: r, svc: services.New(cfg, log, r, opts...)}, nil
}

func (o *rootOptions) print(w io.Writer, v any, table func(io.Writer)) error {
	if o.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	table(w)
	return nil
}

func migrateCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.db.Close()
			if err := a.repo.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func burndownCmd(o *rootOptions) *cobra.Command {
	var developer string
	var opts services.BurndownOptions
	cmd := &cobra.Command{
		Use:   "burndown SPRINT_ID",
		Short: "Print a developer's day-by-day burndown for a sprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.db.Close()
			res, err := a.svc.ComputeBurndown(cmd.Context(), args[0], developer, opts)
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), res, func(w io.Writer) { renderBurndown(w, res) })
		},
	}
	cmd.Flags().StringVarP(&developer, "developer", "d", "", "developer id (required)")
	cmd.Flags().StringVar(&opts.SquadID, "squad", "", "restrict to a squad")
	cmd.Flags().StringVar(&opts.InitiativeID, "initiative", "", "restrict to an initiative")
	_ = cmd.MarkFlagRequired("developer")
	return cmd
}

func sprintMetricsCmd(o *rootOptions) *cobra.Command {
	var history bool
	cmd := &cobra.Command{
		Use:   "sprint-metrics SPRINT_ID",
		Short: "Compute and store a sprint rollup, or list stored ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.db.Close()
			if history {
				stored, err := a.svc.SprintHistory(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return o.print(cmd.OutOrStdout(), stored, func(w io.Writer) { renderSprintRollups(w, stored...) })
			}
			r, err := a.svc.ComputeSprintMetrics(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), r, func(w io.Writer) { renderSprintRollups(w, r) })
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "list stored rollups instead of computing a new one")
	return cmd
}

func developerMetricsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "developer-metrics SPRINT_ID",
		Short: "Compute and store per-developer rollups for a sprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.db.Close()
			rs, err := a.svc.ComputeDeveloperMetrics(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), rs, func(w io.Writer) { renderDeveloperRollups(w, rs, a.svc.Capacity()) })
		},
	}
}

func recomputeCmd(o *rootOptions) *cobra.Command {
	var squad string
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute rollups for every sprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.db.Close()
			if squad == "" {
				squad = a.cfg.RecomputeSquad
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.RecomputeTimeout)
			defer cancel()
			run, err := recomputeExclusive(ctx, a.repo, a.svc, squad)
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), run, func(w io.Writer) { renderRun(w, run) })
		},
	}
	cmd.Flags().StringVar(&squad, "squad", "", "only sprints of this squad (default RECOMPUTE_SQUAD)")
	return cmd
}

// errPassRunning is returned when another process holds the recompute lock.
var errPassRunning = errors.New("recompute already running elsewhere")

type recomputer interface {
	RecomputeAll(ctx context.Context, squadID string) (*services.Run, error)
}

// recomputeExclusive runs one pass under the same advisory lock the service's
// cron and admin trigger take, and refuses to start while it is held.
func recomputeExclusive(ctx context.Context, lock jobs.Locker, svc recomputer, squad string) (*services.Run, error) {
	ok, err := lock.TryAdvisoryLock(ctx, jobs.RecomputeLockKey)
	if err != nil {
		return nil, fmt.Errorf("recompute lock: %w", err)
	}
	if !ok {
		return nil, errPassRunning
	}
	defer func() { _ = lock.AdvisoryUnlock(context.Background(), jobs.RecomputeLockKey) }()
	return svc.RecomputeAll(ctx, squad)
}
