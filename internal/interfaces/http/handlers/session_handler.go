package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/dtiscope/internal/application/session"
	"github.com/turtacn/dtiscope/internal/domain/selection"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/dtiscope/pkg/errors"
)

// SessionManager is the part of session.Manager the handlers use.
type SessionManager interface {
	Create() (*session.Session, error)
	Get(id string) (*session.Session, error)
	Delete(id string) error
}

// Command types accepted over REST and the websocket.
const (
	CmdQuery   = "query"
	CmdSelect  = "select"
	CmdMode    = "mode"
	CmdManual  = "manual"
	CmdSubmit  = "submit"
	CmdAnalyze = "analyze"
)

// Command is one user action against a session.
type Command struct {
	Type  string `json:"type"`
	Kind  string `json:"kind,omitempty"`
	Text  string `json:"text,omitempty"`
	Index int    `json:"index,omitempty"`
}

// SessionHandler serves /api/v1/sessions.
type SessionHandler struct {
	sessions SessionManager
	logger   logging.Logger
	metrics  *prometheus.AppMetrics
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions SessionManager, logger logging.Logger, metrics *prometheus.AppMetrics) *SessionHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopAppMetrics()
	}
	return &SessionHandler{sessions: sessions, logger: logger.Named("api"), metrics: metrics}
}

// Create handles POST /sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, _ *http.Request) {
	s, err := h.sessions.Create()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.View())
}

// Get handles GET /sessions/{sessionID}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

// Delete handles DELETE /sessions/{sessionID}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "sessionID")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Query handles POST /sessions/{sessionID}/{kind}/query.  Suggestions arrive
// after the debounce window, so the response is 202 with the current view.
func (h *SessionHandler) Query(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, CmdQuery, http.StatusAccepted)
}

// Select handles POST /sessions/{sessionID}/{kind}/select.
func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, CmdSelect, http.StatusOK)
}

// ToggleMode handles POST /sessions/{sessionID}/{kind}/mode.
func (h *SessionHandler) ToggleMode(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, CmdMode, http.StatusOK)
}

// SetManual handles PUT /sessions/{sessionID}/{kind}/manual.
func (h *SessionHandler) SetManual(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, CmdManual, http.StatusOK)
}

// SubmitManual handles POST /sessions/{sessionID}/{kind}/manual/submit.
func (h *SessionHandler) SubmitManual(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, CmdSubmit, http.StatusOK)
}

// Analyze handles POST /sessions/{sessionID}/analyze.  The run continues in
// the background; clients poll the session or watch the websocket.
func (h *SessionHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, CmdAnalyze, http.StatusAccepted)
}

func (h *SessionHandler) command(w http.ResponseWriter, r *http.Request, cmdType string, okStatus int) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var cmd Command
	if cmdType != CmdMode && cmdType != CmdSubmit && cmdType != CmdAnalyze {
		if err := decodeJSON(r, &cmd); err != nil {
			writeAppError(w, err)
			return
		}
	}
	cmd.Type = cmdType
	cmd.Kind = chi.URLParam(r, "kind")

	if err := Apply(r.Context(), s, cmd); err != nil {
		h.logger.Debug("command rejected",
			logging.String(logging.FieldSessionID, s.ID),
			logging.String("command", cmdType),
			logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, okStatus, s.View())
}

func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeAppError(w, err)
		return nil, false
	}
	return s, true
}

// Apply runs cmd against s.  A selection superseded by a later action is
// not an error.
func Apply(ctx context.Context, s *session.Session, cmd Command) error {
	cmdType := strings.ToLower(strings.TrimSpace(cmd.Type))
	if cmdType == CmdAnalyze {
		return s.Analyze()
	}

	kind, err := selection.ParseKind(cmd.Kind)
	if err != nil {
		return errors.New(errors.ErrCodeLookupKindUnsupported, "").WithDetail(cmd.Kind)
	}
	res, err := s.Resolver(kind)
	if err != nil {
		return err
	}

	switch cmdType {
	case CmdQuery:
		res.QueryChange(cmd.Text)
	case CmdSelect:
		_, _, err = res.SelectAt(ctx, cmd.Index)
	case CmdMode:
		res.ToggleMode()
	case CmdManual:
		res.SetManualText(cmd.Text)
	case CmdSubmit:
		res.SubmitManual()
	default:
		return errors.New(errors.ErrCodeBadRequest, "unknown command type").WithDetail(cmd.Type)
	}
	return err
}

//Personal.AI order the ending
