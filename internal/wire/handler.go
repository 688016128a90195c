package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/matthewbaird/edidform/internal/binding"
	"github.com/matthewbaird/edidform/internal/httputil"
	"github.com/matthewbaird/edidform/internal/logging"
	"github.com/matthewbaird/edidform/internal/ruleset"
	"github.com/matthewbaird/edidform/internal/session"
	"github.com/matthewbaird/edidform/internal/visibility"
)

// Handler manages WebSocket connections for form pages.
type Handler struct {
	registry *ruleset.Registry
	sessions *session.Manager
	log      zerolog.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(registry *ruleset.Registry, sessions *session.Manager) *Handler {
	return &Handler{
		registry: registry,
		sessions: sessions,
		log:      logging.Component("wire"),
	}
}

// RegisterRoutes mounts the WebSocket endpoint on r.
func RegisterRoutes(r chi.Router, registry *ruleset.Registry, sessions *session.Manager) {
	h := NewHandler(registry, sessions)
	r.Get("/api/forms/{form}/ws", h.ServeHTTP)
}

// connection is the per-page state of one WebSocket.
type connection struct {
	conn   *websocket.Conn
	sess   *session.Session
	binder *binding.Binder
	sets   []visibility.RuleSet
}

// ServeHTTP upgrades to WebSocket and runs the message loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	formName := chi.URLParam(r, "form")
	sets, ok := h.registry.FormSections(formName)
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "unknown form: "+formName)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	sess := h.sessions.Create(formName)
	defer h.sessions.Remove(sess.ID)
	ctx := r.Context()

	c := &connection{
		conn:   conn,
		sess:   sess,
		binder: binding.New(sets),
		sets:   sets,
	}
	c.binder.Subscribe("page", binding.SinkFunc(func(ctx context.Context, evt binding.Event, res binding.Result) error {
		delta, full := sess.Diff(res)
		return wsjson.Write(ctx, conn, ServerMessage{
			Type:      "directives",
			RequestID: evt.ID,
			Data:      DirectivesData{Sections: delta, Full: full},
		})
	}))

	log := h.log.With().Str("session", sess.ID).Str("form", formName).Logger()
	log.Debug().Msg("page connected")

	h.send(ctx, conn, ServerMessage{
		Type: "session",
		Data: SessionData{
			SessionID: sess.ID,
			Form:      formName,
			Drivers:   c.binder.Drivers(),
		},
	})

	// Message loop
	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Debug().Int("status", int(websocket.CloseStatus(err))).Msg("connection closed")
			}
			return
		}
		if h.sessions.Get(sess.ID) == nil {
			h.sendError(ctx, conn, msg.ID, "session_expired", "session expired")
			conn.Close(websocket.StatusPolicyViolation, "session expired")
			return
		}
		sess.Touch()

		switch msg.Type {
		case "ready":
			h.handleReady(ctx, c, msg)
		case "change":
			h.handleChange(ctx, c, msg)
		case "clean":
			h.handleClean(ctx, c, msg)
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *Handler) handleReady(ctx context.Context, c *connection, msg ClientMessage) {
	var data ReadyData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, c.conn, msg.ID, "invalid_data", "invalid ready data")
		return
	}
	c.sess.Reset()
	c.binder.Handle(ctx, binding.Event{Type: binding.EventReady, ID: msg.ID}, data.Form)
}

func (h *Handler) handleChange(ctx context.Context, c *connection, msg ClientMessage) {
	var data ChangeData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, c.conn, msg.ID, "invalid_data", "invalid change data")
		return
	}
	if data.Field == "" {
		h.sendError(ctx, c.conn, msg.ID, "missing_field", "change without a field name")
		return
	}

	res := c.binder.Handle(ctx, binding.Event{Type: binding.EventChange, Field: data.Field, ID: msg.ID}, data.Form)
	if len(res) == 0 {
		// Not a driver: nothing was dispatched, acknowledge with no directives.
		h.send(ctx, c.conn, ServerMessage{
			Type:      "directives",
			RequestID: msg.ID,
			Data:      DirectivesData{Sections: binding.Result{}},
		})
	}
}

func (h *Handler) handleClean(ctx context.Context, c *connection, msg ClientMessage) {
	var data CleanData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, c.conn, msg.ID, "invalid_data", "invalid clean data")
		return
	}
	form, errs := visibility.CleanAll(c.sets, data.Form)
	h.send(ctx, c.conn, ServerMessage{
		Type:      "cleaned",
		RequestID: msg.ID,
		Data:      CleanedData{Form: form, Errors: errs},
	})
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.log.Warn().Err(err).Str("type", msg.Type).Msg("write error")
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}
