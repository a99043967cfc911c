// Package httpapi exposes the REST API over the application services.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	app "github.com/classtrack/classtrack/internal/app"
	"github.com/classtrack/classtrack/internal/app/domain/assignment"
	"github.com/classtrack/classtrack/internal/app/metrics"
	"github.com/classtrack/classtrack/internal/app/services/assignments"
	"github.com/classtrack/classtrack/internal/app/services/auth"
	"github.com/classtrack/classtrack/internal/app/services/subjects"
	"github.com/classtrack/classtrack/internal/app/storage"
	"github.com/classtrack/classtrack/internal/middleware"
	"github.com/classtrack/classtrack/pkg/logger"
)

// Config carries the HTTP-surface settings.
type Config struct {
	AllowedOrigins []string
	RateLimitRPS   int
	RateLimitBurst int
	LoginURL       string
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// New returns the fully wired router: public auth and health routes, and the
// authenticated /api/v1 surface.
func New(application *app.Application, cfg Config, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	r := mux.NewRouter()
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.RequestLogging(log))
	if cfg.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
		r.Use(limiter.Handler)
	}

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)

	authmw := middleware.NewAuthMiddleware(application.Auth, cfg.LoginURL, log)
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authmw.Handler)

	api.HandleFunc("/assignments", h.createAssignment).Methods(http.MethodPost)
	api.HandleFunc("/assignments", h.listAssignments).Methods(http.MethodGet)
	api.HandleFunc("/assignments/{id}", h.getAssignment).Methods(http.MethodGet)
	api.HandleFunc("/assignments/{id}", h.updateAssignment).Methods(http.MethodPost, http.MethodPut)
	api.HandleFunc("/assignments/{id}", h.deleteAssignment).Methods(http.MethodDelete)
	// Form-friendly alias for clients that cannot issue DELETE.
	api.HandleFunc("/assignments/{id}/delete", h.deleteAssignment).Methods(http.MethodPost)

	api.HandleFunc("/subjects", h.createSubject).Methods(http.MethodPost)
	api.HandleFunc("/subjects", h.listSubjects).Methods(http.MethodGet)
	api.HandleFunc("/subjects/{id}", h.getSubject).Methods(http.MethodGet)
	api.HandleFunc("/subjects/{id}", h.deleteSubject).Methods(http.MethodDelete)
	api.HandleFunc("/subjects/{id}/delete", h.deleteSubject).Methods(http.MethodPost)

	return r
}

// --- health -----------------------------------------------------------------

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- auth -------------------------------------------------------------------

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, err := h.app.Auth.Register(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	token, sess, err := h.app.Auth.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": sess.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(middleware.TokenCookieName); err == nil {
		token = cookie.Value
	}
	if authHeader := r.Header.Get("Authorization"); len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		token = authHeader[7:]
	}

	if token != "" {
		if err := h.app.Auth.Logout(r.Context(), token); err != nil {
			h.writeServiceError(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// --- assignments ------------------------------------------------------------

type assignmentPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	SubjectID   string `json:"subject_id"`
	DueDate     string `json:"due_date"`
}

func (h *handler) createAssignment(w http.ResponseWriter, r *http.Request) {
	var payload assignmentPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	dueDate, err := parseDueDate(payload.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ownerID := middleware.GetUserID(r.Context())
	created, err := h.app.Assignments.Create(r.Context(), ownerID, assignment.Assignment{
		Title:       payload.Title,
		Description: payload.Description,
		Priority:    assignment.Priority(payload.Priority),
		SubjectID:   payload.SubjectID,
		DueDate:     dueDate,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	sub, _ := h.app.Subjects.Get(r.Context(), ownerID, created.SubjectID)
	writeJSON(w, http.StatusCreated, bindAssignment(created, sub.Name))
}

func (h *handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	subjectID := r.URL.Query().Get("subject_id")

	items, err := h.app.Assignments.List(r.Context(), ownerID, subjectID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	subs, err := h.app.Subjects.List(r.Context(), ownerID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bindAssignments(items, subs))
}

func (h *handler) getAssignment(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	id := mux.Vars(r)["id"]

	a, err := h.app.Assignments.Get(r.Context(), ownerID, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	sub, _ := h.app.Subjects.Get(r.Context(), ownerID, a.SubjectID)
	writeJSON(w, http.StatusOK, bindAssignment(a, sub.Name))
}

func (h *handler) updateAssignment(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Priority    *string `json:"priority"`
		SubjectID   *string `json:"subject_id"`
		DueDate     *string `json:"due_date"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	params := assignments.UpdateParams{
		Title:       payload.Title,
		Description: payload.Description,
		SubjectID:   payload.SubjectID,
	}
	if payload.Priority != nil {
		p := assignment.Priority(*payload.Priority)
		params.Priority = &p
	}
	if payload.DueDate != nil {
		due, err := parseDueDate(*payload.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		params.DueDate = &due
	}

	ownerID := middleware.GetUserID(r.Context())
	id := mux.Vars(r)["id"]

	updated, err := h.app.Assignments.Update(r.Context(), ownerID, id, params)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	sub, _ := h.app.Subjects.Get(r.Context(), ownerID, updated.SubjectID)
	writeJSON(w, http.StatusOK, bindAssignment(updated, sub.Name))
}

func (h *handler) deleteAssignment(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	id := mux.Vars(r)["id"]

	if err := h.app.Assignments.Delete(r.Context(), ownerID, id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- subjects ---------------------------------------------------------------

func (h *handler) createSubject(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Subjects.Create(r.Context(), middleware.GetUserID(r.Context()), payload.Name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bindSubject(created))
}

func (h *handler) listSubjects(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Subjects.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bindSubjects(items))
}

func (h *handler) getSubject(w http.ResponseWriter, r *http.Request) {
	sub, err := h.app.Subjects.Get(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bindSubject(sub))
}

func (h *handler) deleteSubject(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Subjects.Delete(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ----------------------------------------------------------------

func parseDueDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errors.New("due_date must be RFC3339 or YYYY-MM-DD")
}

// writeServiceError maps service and storage errors onto HTTP statuses.
// Storage failures surface as a generic 500; the raw error is only logged.
func (h *handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, errors.New("not found"))
	case errors.Is(err, assignments.ErrInvalid),
		errors.Is(err, subjects.ErrInvalid),
		errors.Is(err, auth.ErrInvalid):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, subjects.ErrInUse):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err)
	default:
		h.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
