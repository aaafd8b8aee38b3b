package run

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/multistate/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _, _, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestHandler_CreateRun(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{"cohort":"trial"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, "analyst-7"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateRun(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var run Run
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.Rows != 7 {
		t.Errorf("expected 7 rows, got %d", run.Rows)
	}
	if run.CreatedBy == nil || *run.CreatedBy != "analyst-7" {
		t.Errorf("expected created_by analyst-7, got %v", run.CreatedBy)
	}
}

func TestHandler_CreateRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"missing cohort", `{}`, http.StatusBadRequest},
		{"short vocabulary", `{"cohort":"trial","labels":["IN","OUT"]}`, http.StatusBadRequest},
		{"duplicate labels", `{"cohort":"trial","labels":["IN","IN","DEAD"]}`, http.StatusUnprocessableEntity},
		{"empty cohort", `{"cohort":"unknown"}`, http.StatusNotFound},
		{"malformed", `{"cohort":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, e := newTestHandler()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			c := e.NewContext(req, httptest.NewRecorder())

			err := h.CreateRun(c)
			if err == nil {
				t.Fatal("expected error")
			}
			if code := httpCode(t, err); code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, code)
			}
		})
	}
}

func TestHandler_GetRun(t *testing.T) {
	h, e := newTestHandler()
	run, err := h.svc.CreateRun(context.Background(), CreateRunRequest{Cohort: "trial"}, "")
	if err != nil {
		t.Fatalf("CreateRun() error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(run.ID.String())

	if err := h.GetRun(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetRun_NotFound(t *testing.T) {
	h, e := newTestHandler()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if code := httpCode(t, h.GetRun(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_GetRun_InvalidID(t *testing.T) {
	h, e := newTestHandler()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if code := httpCode(t, h.GetRun(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_ListRuns(t *testing.T) {
	h, e := newTestHandler()
	for i := 0; i < 3; i++ {
		if _, err := h.svc.CreateRun(context.Background(), CreateRunRequest{Cohort: "trial"}, ""); err != nil {
			t.Fatalf("CreateRun() error: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListRuns(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data    []Run `json:"data"`
		Total   int   `json:"total"`
		HasMore bool  `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 3 || len(body.Data) != 2 || !body.HasMore {
		t.Errorf("unexpected page: total=%d len=%d has_more=%v", body.Total, len(body.Data), body.HasMore)
	}
}

func TestHandler_ListRows(t *testing.T) {
	h, e := newTestHandler()
	run, err := h.svc.CreateRun(context.Background(), CreateRunRequest{Cohort: "trial"}, "")
	if err != nil {
		t.Fatalf("CreateRun() error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+run.ID.String()+"/rows", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(run.ID.String())

	if err := h.ListRows(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data  []Row `json:"data"`
		Total int   `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 7 || len(body.Data) != 7 {
		t.Fatalf("expected all 7 rows, got %d of %d", len(body.Data), body.Total)
	}
	if body.Data[0].Record["status"] != "IN" {
		t.Errorf("expected first row IN, got %v", body.Data[0].Record["status"])
	}
}
