// Package httpapi is the thin HTTP layer over the attendance services. It
// delegates to the service, scanner, and settlement packages without
// embedding business logic, so transport concerns remain isolated.
package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayazawa/kintore/internal/auth"
	"github.com/ayazawa/kintore/internal/dedup"
	"github.com/ayazawa/kintore/internal/metrics"
	"github.com/ayazawa/kintore/internal/middleware"
	"github.com/ayazawa/kintore/internal/scanner"
	"github.com/ayazawa/kintore/internal/service"
	"github.com/ayazawa/kintore/internal/settlement"
)

// Handler wires the HTTP endpoints to the domain services.
type Handler struct {
	svc     *service.AttendanceService
	scanner *scanner.Scanner
	engine  *settlement.Engine
	jwt     *auth.JWTManager
	metrics *metrics.Metrics
	loc     *time.Location

	groupID           string
	adminPasswordHash string

	now func() time.Time
}

// New constructs the handler with its dependencies.
func New(svc *service.AttendanceService, sc *scanner.Scanner, engine *settlement.Engine,
	jwt *auth.JWTManager, m *metrics.Metrics, loc *time.Location,
	groupID, adminPasswordHash string) *Handler {
	return &Handler{
		svc:               svc,
		scanner:           sc,
		engine:            engine,
		jwt:               jwt,
		metrics:           m,
		loc:               loc,
		groupID:           groupID,
		adminPasswordHash: adminPasswordHash,
		now:               time.Now,
	}
}

// NewRouter wires all endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging)

	r.Post("/events/media", h.handleMediaEvent)
	r.Post("/events/text", h.handleTextEvent)
	r.Get("/progress/{name}", h.handleProgress)

	r.Post("/admin/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwt))
		r.Post("/admin/scan", h.handleScan)
		r.Post("/admin/settle", h.handleSettle)
		r.Post("/admin/excuse", h.handleExcuse)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

type mediaEventRequest struct {
	MemberID  string `json:"member_id"`
	GroupID   string `json:"group_id"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"` // base64
}

func (h *Handler) handleMediaEvent(w http.ResponseWriter, r *http.Request) {
	var req mediaEventRequest
	if !decode(w, r, &req) {
		return
	}
	if req.MemberID == "" {
		writeError(w, http.StatusBadRequest, "member_id is required")
		return
	}

	// Group-membership filtering is a transport concern: events from other
	// groups are acknowledged and dropped here, before the core sees them.
	if h.groupID != "" && req.GroupID != h.groupID {
		slog.Warn("Dropping media event from unauthorized group",
			"group_id", req.GroupID, "member_id", req.MemberID)
		writeJSON(w, http.StatusOK, map[string]string{"reply": ""})
		return
	}

	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		writeError(w, http.StatusBadRequest, "content is not valid base64")
		return
	}

	reply, err := h.svc.OnMediaEvent(r.Context(), req.MemberID, content, req.MessageID)
	if errors.Is(err, dedup.ErrMediaTooSmall) {
		writeError(w, http.StatusBadRequest, "media payload too small")
		return
	}
	if err != nil {
		slog.Error("Media event failed", "member_id", req.MemberID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record event")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

type textEventRequest struct {
	MemberID string `json:"member_id"`
	GroupID  string `json:"group_id"`
	Text     string `json:"text"`
}

func (h *Handler) handleTextEvent(w http.ResponseWriter, r *http.Request) {
	var req textEventRequest
	if !decode(w, r, &req) {
		return
	}

	if h.groupID != "" && req.GroupID != h.groupID {
		writeJSON(w, http.StatusOK, map[string]string{"reply": ""})
		return
	}

	reply, err := h.svc.OnTextEvent(r.Context(), req.MemberID, req.Text)
	if err != nil {
		slog.Error("Text event failed", "member_id", req.MemberID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to handle text event")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	count, err := h.svc.ReportAbsences(r.Context(), name)
	if errors.Is(err, service.ErrNotRegistered) {
		writeError(w, http.StatusNotFound, "not registered")
		return
	}
	if errors.Is(err, service.ErrNoData) {
		writeError(w, http.StatusNotFound, "no data available")
		return
	}
	if err != nil {
		slog.Error("Progress query failed", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query progress")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"name": name, "absences": count})
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	if h.adminPasswordHash == "" {
		writeError(w, http.StatusForbidden, "admin access is not configured")
		return
	}
	if err := auth.VerifyPassword(h.adminPasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	token, err := h.jwt.Generate("admin")
	if err != nil {
		slog.Error("Failed to issue admin token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type scanRequest struct {
	Date string `json:"date"` // YYYY-MM-DD, defaults to yesterday
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !decode(w, r, &req) {
		return
	}

	day := h.now().In(h.loc).AddDate(0, 0, -1)
	if req.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.Date, h.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	row, err := h.scanner.Scan(r.Context(), day)
	if errors.Is(err, scanner.ErrAlreadyScanned) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		slog.Error("Scan failed", "error", err)
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}
	h.metrics.RowsAppended.Inc()

	writeJSON(w, http.StatusOK, map[string]interface{}{"day": row.Day, "marks": row.Marks})
}

type settleRequest struct {
	Auto bool `json:"auto"`
}

type balanceResponse struct {
	MemberID    string `json:"member_id"`
	DisplayName string `json:"display_name"`
	Amount      string `json:"amount"`
}

func (h *Handler) handleSettle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if !decode(w, r, &req) {
		return
	}

	balances, report, err := h.engine.Run(r.Context(), req.Auto)
	if errors.Is(err, settlement.ErrNoData) {
		writeError(w, http.StatusNotFound, "no data available")
		return
	}
	if err != nil {
		slog.Error("Settlement failed", "error", err)
		writeError(w, http.StatusInternalServerError, "settlement failed")
		return
	}
	h.metrics.SettlementsRun.Inc()

	resp := make([]balanceResponse, len(balances))
	for i, b := range balances {
		resp[i] = balanceResponse{
			MemberID:    b.MemberID,
			DisplayName: b.DisplayName,
			Amount:      b.Amount.StringFixed(2),
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"report": report, "balances": resp})
}

type excuseRequest struct {
	Date     string `json:"date"`
	MemberID string `json:"member_id"`
}

func (h *Handler) handleExcuse(w http.ResponseWriter, r *http.Request) {
	var req excuseRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Date == "" || req.MemberID == "" {
		writeError(w, http.StatusBadRequest, "date and member_id are required")
		return
	}

	err := h.svc.Excuse(r.Context(), req.Date, req.MemberID)
	if errors.Is(err, service.ErrNotRegistered) {
		writeError(w, http.StatusNotFound, "not registered")
		return
	}
	if errors.Is(err, service.ErrNoData) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no row for %s", req.Date))
		return
	}
	if err != nil {
		slog.Error("Excuse override failed", "day", req.Date, "member_id", req.MemberID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to apply excused mark")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode parses the JSON body into dst. An empty body leaves dst at its zero
// value so endpoints with all-optional fields accept bodyless requests.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
