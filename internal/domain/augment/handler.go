package augment

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/multistate/internal/platform/auth"
	"github.com/ehr/multistate/internal/platform/frame"
	"github.com/ehr/multistate/internal/platform/metrics"
)

var validate = validator.New()

// Request is the body of POST /augment.
type Request struct {
	Frame   *frame.Frame   `json:"frame" validate:"required"`
	Roles   Roles          `json:"roles"`
	Options RequestOptions `json:"options"`
}

// RequestOptions are the per-call knobs exposed over HTTP.
type RequestOptions struct {
	Labels          []string `json:"labels,omitempty"`
	ValidateMissing bool     `json:"validate_missing"`
	Verbose         bool     `json:"verbose"`
}

// Response carries the augmented table in the requested representation.
type Response struct {
	Frame    json.RawMessage `json:"frame"`
	Format   string          `json:"format"`
	Family   string          `json:"family"`
	Subjects int             `json:"subjects"`
	Rows     int             `json:"rows"`
	Warnings []string        `json:"warnings,omitempty"`
}

type Handler struct {
	logger  zerolog.Logger
	metrics *metrics.Metrics
	vocab   []string
	workers int
}

func NewHandler(logger zerolog.Logger, m *metrics.Metrics, vocab []string, workers int) *Handler {
	return &Handler{logger: logger, metrics: m, vocab: vocab, workers: workers}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleAnalyst))
	g.POST("/augment", h.Augment)
}

// Augment expands an inline table. ?format=rows returns row records instead
// of the columnar form.
func (h *Handler) Augment(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	format := c.QueryParam("format")
	if format == "" {
		format = frame.FormatColumnar
	}
	if format != frame.FormatColumnar && format != frame.FormatRows {
		return echo.NewHTTPError(http.StatusBadRequest, "format must be columnar or rows")
	}

	opts := Options{
		Vocabulary:      h.vocab,
		ValidateMissing: req.Options.ValidateMissing,
		Workers:         h.workers,
		Verbose:         req.Options.Verbose,
		Logger:          &h.logger,
	}
	if len(req.Options.Labels) > 0 {
		opts.Vocabulary = req.Options.Labels
	}

	start := time.Now()
	res, err := Augment(c.Request().Context(), req.Frame, req.Roles, opts)
	if err != nil {
		outcome := metrics.OutcomeFailed
		if IsValidationError(err) {
			outcome = metrics.OutcomeRejected
		}
		h.metrics.ObserveAugment(start, outcome, 0, 0, 0)
		return ToHTTPError(err)
	}
	h.metrics.ObserveAugment(start, metrics.OutcomeOK, res.Subjects, res.Frame.Len(), len(res.Warnings))

	body, err := frame.Encode(res.Frame, format)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, Response{
		Frame:    body,
		Format:   format,
		Family:   res.Family.String(),
		Subjects: res.Subjects,
		Rows:     res.Frame.Len(),
		Warnings: res.Warnings,
	})
}

// ToHTTPError maps augmentation errors to HTTP errors: the validation
// taxonomy becomes 422, anything else 500.
func ToHTTPError(err error) *echo.HTTPError {
	if IsValidationError(err) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
