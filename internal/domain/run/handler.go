package run

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/multistate/internal/domain/augment"
	"github.com/ehr/multistate/internal/platform/auth"
	"github.com/ehr/multistate/pkg/pagination"
)

var validate = validator.New()

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleAnalyst))
	g.POST("/runs", h.CreateRun)
	g.GET("/runs", h.ListRuns)
	g.GET("/runs/:id", h.GetRun)
	g.GET("/runs/:id/rows", h.ListRows)
}

func (h *Handler) CreateRun(c echo.Context) error {
	var req CreateRunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	run, err := h.svc.CreateRun(ctx, req, auth.UserIDFromContext(ctx))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, run)
}

func (h *Handler) GetRun(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	run, err := h.svc.GetRun(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, run)
}

func (h *Handler) ListRuns(c echo.Context) error {
	p := pagination.FromContext(c)
	runs, total, err := h.svc.ListRuns(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if runs == nil {
		runs = []*Run{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(runs, total, p).WithLinks(c.Request().URL.Path, p))
}

func (h *Handler) ListRows(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := pagination.FromContext(c)
	rows, total, err := h.svc.ListRows(c.Request().Context(), id, p.Limit, p.Offset)
	if err != nil {
		return toHTTPError(err)
	}
	if rows == nil {
		rows = []*Row{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(rows, total, p).WithLinks(c.Request().URL.Path, p))
}

func toHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	case errors.Is(err, ErrEmptyCohort):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return augment.ToHTTPError(err)
}
