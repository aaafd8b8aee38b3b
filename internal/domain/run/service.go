package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/multistate/internal/domain/augment"
	"github.com/ehr/multistate/internal/domain/episode"
	"github.com/ehr/multistate/internal/domain/polish"
	"github.com/ehr/multistate/internal/platform/frame"
	"github.com/ehr/multistate/internal/platform/metrics"
)

// ErrEmptyCohort is returned when a cohort has no episodes to augment.
var ErrEmptyCohort = errors.New("cohort has no episodes")

// TxFunc runs fn in a transaction. Repositories pick the transaction up from
// the context passed to fn.
type TxFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// CreateRunRequest selects a cohort and the per-run augmentation knobs.
type CreateRunRequest struct {
	Cohort          string   `json:"cohort" validate:"required,max=128"`
	Labels          []string `json:"labels,omitempty" validate:"omitempty,len=3,dive,required"`
	Secondary       bool     `json:"secondary"`
	ValidateMissing bool     `json:"validate_missing"`
	Polish          bool     `json:"polish"`
	Verbose         bool     `json:"verbose"`
}

type Service struct {
	runs     Repository
	episodes episode.Repository
	tx       TxFunc
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	defaults augment.Options
}

// NewService wires the run service. defaults supplies the vocabulary and
// worker count used when a request does not override them.
func NewService(runs Repository, episodes episode.Repository, tx TxFunc, m *metrics.Metrics, logger zerolog.Logger, defaults augment.Options) *Service {
	if tx == nil {
		tx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return &Service{runs: runs, episodes: episodes, tx: tx, metrics: m, logger: logger, defaults: defaults}
}

// CreateRun loads the cohort, augments it, optionally collapses same-time
// transitions, and stores the run with its rows in one transaction.
func (s *Service) CreateRun(ctx context.Context, req CreateRunRequest, createdBy string) (*Run, error) {
	if req.Cohort == "" {
		return nil, &augment.ConfigurationError{Param: "cohort", Reason: "cohort is required"}
	}
	eps, err := s.episodes.ListByCohort(ctx, req.Cohort)
	if err != nil {
		return nil, err
	}
	if len(eps) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCohort, req.Cohort)
	}
	in, err := episode.ToFrame(eps)
	if err != nil {
		return nil, fmt.Errorf("build cohort frame: %w", err)
	}

	roles := episode.DefaultRoles()
	if !req.Secondary {
		roles.Secondary = ""
	}
	opts := s.defaults
	opts.ValidateMissing = req.ValidateMissing
	opts.Verbose = opts.Verbose || req.Verbose
	if len(req.Labels) > 0 {
		opts.Vocabulary = req.Labels
	}
	log := s.logger.With().Str("cohort", req.Cohort).Logger()
	opts.Logger = &log

	start := time.Now()
	res, err := augment.Augment(ctx, in, roles, opts)
	if err != nil {
		outcome := metrics.OutcomeFailed
		if augment.IsValidationError(err) {
			outcome = metrics.OutcomeRejected
		}
		s.metrics.ObserveAugment(start, outcome, 0, 0, 0)
		return nil, err
	}
	s.metrics.ObserveAugment(start, metrics.OutcomeOK, res.Subjects, res.Frame.Len(), len(res.Warnings))

	out := res.Frame
	if req.Polish {
		p, err := polish.Polish(out, polish.Options{SubjectColumn: episode.ColSubject, Mode: polish.ModeCollapse})
		if err != nil {
			return nil, err
		}
		s.metrics.ObservePolish(p.Conflicts, p.Redundant)
		out = p.Frame
	}

	vocab := opts.Vocabulary
	if vocab == nil {
		vocab = augment.DefaultVocabulary()
	}
	run := &Run{
		Cohort:     req.Cohort,
		Vocabulary: vocab,
		Secondary:  roles.Secondary != "",
		Polished:   req.Polish,
		Family:     res.Family.String(),
		Subjects:   res.Subjects,
		Rows:       out.Len(),
		Warnings:   res.Warnings,
	}
	if createdBy != "" {
		run.CreatedBy = &createdBy
	}
	rows := toRows(out)

	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.runs.Create(ctx, run); err != nil {
			return fmt.Errorf("store run: %w", err)
		}
		if _, err := s.runs.InsertRows(ctx, run.ID, rows); err != nil {
			return fmt.Errorf("store rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("run_id", run.ID.String()).Int("rows", run.Rows).Msg("augmentation run stored")
	return run, nil
}

func toRows(f *frame.Frame) []*Row {
	subject, _ := f.Column(episode.ColSubject)
	status, _ := f.Column(augment.ColStatus)
	statusNum, _ := f.Column(augment.ColStatusNum)

	records := f.Records()
	rows := make([]*Row, len(records))
	for i, rec := range records {
		row := &Row{Index: i, SubjectID: subject.Key(i), Record: rec}
		if !status.IsMissing(i) {
			v := status.Strings[i]
			row.Status = &v
		}
		if !statusNum.IsMissing(i) {
			v := int(statusNum.Ints[i])
			row.StatusNum = &v
		}
		rows[i] = row
	}
	return rows
}

// ImportCohort bulk-loads episodes into cohort. With replace set, the
// cohort's existing episodes are removed first in the same transaction.
func (s *Service) ImportCohort(ctx context.Context, cohort string, eps []*episode.Episode, replace bool) (int64, error) {
	if cohort == "" {
		return 0, &augment.ConfigurationError{Param: "cohort", Reason: "cohort is required"}
	}
	var n int64
	err := s.tx(ctx, func(ctx context.Context) error {
		if replace {
			removed, err := s.episodes.DeleteCohort(ctx, cohort)
			if err != nil {
				return err
			}
			s.logger.Info().Str("cohort", cohort).Int64("episodes", removed).Msg("cohort cleared")
		}
		var err error
		n, err = s.episodes.CreateBatch(ctx, cohort, eps)
		return err
	})
	return n, err
}

func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	return s.runs.GetByID(ctx, id)
}

func (s *Service) ListRuns(ctx context.Context, limit, offset int) ([]*Run, int, error) {
	return s.runs.List(ctx, limit, offset)
}

// ListRows pages through a stored run's rows in emission order.
func (s *Service) ListRows(ctx context.Context, id uuid.UUID, limit, offset int) ([]*Row, int, error) {
	if _, err := s.runs.GetByID(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.runs.ListRows(ctx, id, limit, offset)
}
