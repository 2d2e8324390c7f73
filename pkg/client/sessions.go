package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// Entity kinds.
const (
	KindDrug    = "drug"
	KindProtein = "protein"
)

// Selection is the committed record for one entity.  Payload is SMILES for
// drugs and an amino-acid sequence for proteins; empty means unresolved.
type Selection struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	ID      string `json:"id,omitempty"`
	Payload string `json:"payload"`
}

// Resolved reports whether the selection carries a payload.
func (s Selection) Resolved() bool { return s.Payload != "" }

// Suggestion is one search match.
type Suggestion struct {
	Label     string `json:"label"`
	Accession string `json:"accession,omitempty"`
}

// InputState is the input side of one entity field.
type InputState struct {
	Kind        string       `json:"kind"`
	Mode        string       `json:"mode"`
	Query       string       `json:"query"`
	Visible     bool         `json:"suggestions_visible"`
	Resolving   bool         `json:"resolving"`
	Suggestions []Suggestion `json:"suggestions"`
	ManualText  string       `json:"manual_text"`
}

// Entity groups an entity's committed selection and input state.
type Entity struct {
	Selection Selection  `json:"selection"`
	Input     InputState `json:"input"`
}

// AnalysisStatus reports whether an analysis can start and how the last one went.
type AnalysisStatus struct {
	CanRun    bool   `json:"can_run"`
	Running   bool   `json:"running"`
	Result    string `json:"result,omitempty"`
	HasResult bool   `json:"has_result"`
	Error     string `json:"error,omitempty"`
}

// Result is the presented analysis outcome.
type Result struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Session is the server's view of a session.
type Session struct {
	ID       string         `json:"id"`
	Version  uint64         `json:"version"`
	Drug     Entity         `json:"drug"`
	Protein  Entity         `json:"protein"`
	Analysis AnalysisStatus `json:"analysis"`
	Result   *Result        `json:"result"`
}

// Entity returns the drug or protein entity by kind.
func (s *Session) Entity(kind string) Entity {
	if kind == KindProtein {
		return s.Protein
	}
	return s.Drug
}

type commandBody struct {
	Text  string `json:"text,omitempty"`
	Index int    `json:"index"`
}

// SessionsClient calls the /api/v1/sessions endpoints.
type SessionsClient struct {
	client *Client
}

func sessionPath(id string, parts ...string) string {
	p := "/api/v1/sessions/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// Create opens a new session.
func (s *SessionsClient) Create(ctx context.Context) (*Session, error) {
	var out Session
	if err := s.client.do(ctx, http.MethodPost, "/api/v1/sessions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches the current view of a session.
func (s *SessionsClient) Get(ctx context.Context, id string) (*Session, error) {
	var out Session
	if err := s.client.do(ctx, http.MethodGet, sessionPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete closes a session.
func (s *SessionsClient) Delete(ctx context.Context, id string) error {
	return s.client.do(ctx, http.MethodDelete, sessionPath(id), nil, nil)
}

// Query changes the search text.  Suggestions are fetched after the server's
// debounce window; poll Get or use Watch to see them.
func (s *SessionsClient) Query(ctx context.Context, id, kind, text string) (*Session, error) {
	return s.command(ctx, http.MethodPost, sessionPath(id, kind, "query"), &commandBody{Text: text})
}

// Select commits the suggestion at index and waits for its detail lookup.
func (s *SessionsClient) Select(ctx context.Context, id, kind string, index int) (*Session, error) {
	return s.command(ctx, http.MethodPost, sessionPath(id, kind, "select"), &commandBody{Index: index})
}

// ToggleMode switches between search and manual entry.
func (s *SessionsClient) ToggleMode(ctx context.Context, id, kind string) (*Session, error) {
	return s.command(ctx, http.MethodPost, sessionPath(id, kind, "mode"), nil)
}

// SetManual replaces the manual entry text.
func (s *SessionsClient) SetManual(ctx context.Context, id, kind, text string) (*Session, error) {
	return s.command(ctx, http.MethodPut, sessionPath(id, kind, "manual"), &commandBody{Text: text})
}

// SubmitManual commits the manual entry text.
func (s *SessionsClient) SubmitManual(ctx context.Context, id, kind string) (*Session, error) {
	return s.command(ctx, http.MethodPost, sessionPath(id, kind, "manual", "submit"), nil)
}

// Analyze starts an analysis of the committed pair.
func (s *SessionsClient) Analyze(ctx context.Context, id string) (*Session, error) {
	return s.command(ctx, http.MethodPost, sessionPath(id, "analyze"), nil)
}

func (s *SessionsClient) command(ctx context.Context, method, path string, body *commandBody) (*Session, error) {
	var payload interface{}
	if body != nil {
		payload = body
	}
	var out Session
	if err := s.client.do(ctx, method, path, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitForResult polls until the running analysis finishes and returns the
// final view.  A view with neither a result nor a run in progress is returned
// as is.
func (s *SessionsClient) WaitForResult(ctx context.Context, id string) (*Session, error) {
	ticker := time.NewTicker(s.client.pollInterval)
	defer ticker.Stop()
	for {
		view, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !view.Analysis.Running {
			return view, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Websocket stream
// ─────────────────────────────────────────────────────────────────────────────

// StreamFrame is one server frame: a state update or a rejected command.
type StreamFrame struct {
	Type    string   `json:"type"`
	Session *Session `json:"session,omitempty"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Command is sent over a Stream; Type is one of query, select, mode, manual,
// submit or analyze.
type Command struct {
	Type  string `json:"type"`
	Kind  string `json:"kind,omitempty"`
	Text  string `json:"text,omitempty"`
	Index int    `json:"index,omitempty"`
}

// Stream is an open websocket on a session.
type Stream struct {
	conn   *websocket.Conn
	frames chan StreamFrame
	done   chan struct{}
	err    error
}

// Watch opens the session's websocket.  Frames are delivered on Frames until
// the server closes the stream or ctx ends.
func (s *SessionsClient) Watch(ctx context.Context, id string) (*Stream, error) {
	header := http.Header{}
	header.Set("User-Agent", s.client.userAgent)
	conn, resp, err := s.client.dialer.DialContext(ctx, s.client.wsURL(sessionPath(id, "ws")), header)
	if err != nil {
		if resp != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: err.Error()}
		}
		return nil, err
	}

	st := &Stream{conn: conn, frames: make(chan StreamFrame, 16), done: make(chan struct{})}
	go st.read()
	go func() {
		select {
		case <-ctx.Done():
			_ = st.Close()
		case <-st.done:
		}
	}()
	return st, nil
}

func (st *Stream) read() {
	defer close(st.frames)
	defer close(st.done)
	for {
		var f StreamFrame
		if err := st.conn.ReadJSON(&f); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				st.err = err
			}
			return
		}
		st.frames <- f
	}
}

// Frames returns the channel of received frames.  It is closed when the
// stream ends; Err then reports why.
func (st *Stream) Frames() <-chan StreamFrame { return st.frames }

// Err returns the read error that ended the stream, if any.  Valid after
// Frames is closed.
func (st *Stream) Err() error { return st.err }

// Send writes a command.
func (st *Stream) Send(cmd Command) error {
	return st.conn.WriteJSON(cmd)
}

// Close closes the connection.
func (st *Stream) Close() error {
	_ = st.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return st.conn.Close()
}

//Personal.AI order the ending
