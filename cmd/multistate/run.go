package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/multistate/internal/config"
	"github.com/ehr/multistate/internal/domain/augment"
	"github.com/ehr/multistate/internal/domain/episode"
	"github.com/ehr/multistate/internal/domain/run"
	"github.com/ehr/multistate/internal/platform/db"
	"github.com/ehr/multistate/internal/platform/metrics"
)

const cliUser = "cli"

func newRunService(pool *pgxpool.Pool, m *metrics.Metrics, logger zerolog.Logger, cfg *config.Config) *run.Service {
	return run.NewService(
		run.NewRepoPG(pool),
		episode.NewRepoPG(pool),
		func(ctx context.Context, fn func(ctx context.Context) error) error { return db.WithTx(ctx, pool, fn) },
		m,
		logger,
		cfg.AugmentOptions(),
	)
}

// loadEpisodes reads a cohort CSV. Roles not given fall back to the canonical
// episode column names.
func loadEpisodes(cmd *cobra.Command, path, schema string, roles augment.Roles) ([]*episode.Episode, error) {
	f, err := readFrame(cmd, path, schema)
	if err != nil {
		return nil, err
	}
	return episode.FromFrame(f, roles.Merge(episode.DefaultRoles()))
}

func runCmd() *cobra.Command {
	var (
		cohort, load, schema, rolesPath, labels string
		replace, secondary, validateMissing     bool
		polishOut, verbose                      bool
		roles                                   augment.Roles
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Augment a stored cohort and persist the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())
			if err := augment.ValidateVocabulary(cfg.Vocabulary()); err != nil {
				return fmt.Errorf("LABEL_VOCABULARY: %w", err)
			}

			var eps []*episode.Episode
			if load != "" {
				r, err := resolveRoles(roles, rolesPath)
				if err != nil {
					return err
				}
				if eps, err = loadEpisodes(cmd, load, schema, r); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			svc := newRunService(pool, metrics.New(nil), logger, cfg)

			if load != "" {
				n, err := svc.ImportCohort(ctx, cohort, eps, replace)
				if err != nil {
					return err
				}
				logger.Info().Str("cohort", cohort).Int64("episodes", n).Bool("replace", replace).Msg("cohort loaded")
			}

			req := run.CreateRunRequest{
				Cohort:          cohort,
				Labels:          augment.ParseVocabulary(labels),
				Secondary:       secondary,
				ValidateMissing: validateMissing,
				Polish:          polishOut,
				Verbose:         verbose,
			}
			x, err := svc.CreateRun(ctx, req, cliUser)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d subject(s), %d row(s), family %s\n", x.ID, x.Subjects, x.Rows, x.Family)
			for _, w := range x.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cohort, "cohort", "", "Cohort name")
	cmd.Flags().StringVar(&load, "load", "", "Import episodes from this CSV file before the run")
	cmd.Flags().BoolVar(&replace, "replace", false, "Delete the cohort's stored episodes before --load")
	cmd.Flags().StringVar(&schema, "schema", "", "Column kinds for --load, e.g. start=date,end=date")
	cmd.Flags().StringVar(&rolesPath, "roles", "", "YAML file mapping roles to columns of --load")
	cmd.Flags().StringVar(&labels, "labels", "", "State labels for this run (default LABEL_VOCABULARY)")
	cmd.Flags().BoolVar(&secondary, "with-secondary", false, "Expand statuses with the secondary status")
	cmd.Flags().BoolVar(&validateMissing, "validate-missing", false, "Fail on missing values in role columns")
	cmd.Flags().BoolVar(&polishOut, "polish", false, "Collapse transitions sharing a time point")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Log progress")
	roleFlags(cmd, &roles)
	_ = cmd.MarkFlagRequired("cohort")
	return cmd
}
