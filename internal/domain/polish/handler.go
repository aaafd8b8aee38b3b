package polish

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/ehr/multistate/internal/domain/augment"
	"github.com/ehr/multistate/internal/platform/auth"
	"github.com/ehr/multistate/internal/platform/frame"
	"github.com/ehr/multistate/internal/platform/metrics"
)

var validate = validator.New()

type Request struct {
	Frame         *frame.Frame `json:"frame" validate:"required"`
	SubjectColumn string       `json:"subject_column" validate:"required"`
	Mode          string       `json:"mode" validate:"omitempty,oneof=report collapse"`
}

type Response struct {
	Frame     json.RawMessage `json:"frame,omitempty"`
	Groups    []Group         `json:"groups"`
	Conflicts int             `json:"conflicts"`
	Redundant int             `json:"redundant"`
	Dropped   int             `json:"dropped"`
}

type Handler struct {
	metrics *metrics.Metrics
}

func NewHandler(m *metrics.Metrics) *Handler {
	return &Handler{metrics: m}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleAnalyst))
	g.POST("/polish", h.Polish)
}

// Polish reports same-time transition groups; in collapse mode it also
// returns the reduced table.
func (h *Handler) Polish(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	mode, err := ParseMode(req.Mode)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := Polish(req.Frame, Options{SubjectColumn: req.SubjectColumn, Mode: mode})
	if err != nil {
		return augment.ToHTTPError(err)
	}
	h.metrics.ObservePolish(res.Conflicts, res.Redundant)

	resp := Response{
		Groups:    res.Groups,
		Conflicts: res.Conflicts,
		Redundant: res.Redundant,
		Dropped:   res.Dropped,
	}
	if resp.Groups == nil {
		resp.Groups = []Group{}
	}
	if mode == ModeCollapse {
		body, err := frame.Encode(res.Frame, c.QueryParam("format"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		resp.Frame = body
	}
	return c.JSON(http.StatusOK, resp)
}
