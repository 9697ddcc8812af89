package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"vn.io.arda/notifeed/internal/application"
	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/transport/mw"
)

const defaultHeartbeat = 25 * time.Second

// Handler holds all HTTP handler methods.
type Handler struct {
	sessions  *application.Sessions
	hub       *Hub
	heartbeat time.Duration
}

// NewHandler creates a new Handler. heartbeat <= 0 uses 25s.
func NewHandler(sessions *application.Sessions, hub *Hub, heartbeat time.Duration) *Handler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &Handler{sessions: sessions, hub: hub, heartbeat: heartbeat}
}

// --- Feed ---

// Feed GET /feed
func (h *Handler) Feed(c echo.Context) error {
	f, err := h.feed(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f.View())
}

// Badge GET /feed/badge
func (h *Handler) Badge(c echo.Context) error {
	f, err := h.feed(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"badge": f.Badge(), "unreadCount": f.UnreadCount()})
}

// Panel GET /feed/panel
func (h *Handler) Panel(c echo.Context) error {
	f, err := h.feed(c)
	if err != nil {
		return err
	}
	p := f.OpenPanel(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]any{
		"panel": p,
		"badge": f.Badge(),
	})
}

// MarkRead PATCH /feed/:id/read
func (h *Handler) MarkRead(c echo.Context) error {
	f, err := h.feed(c)
	if err != nil {
		return err
	}
	if err := f.MarkAsRead(c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllRead POST /feed/read-all
func (h *Handler) MarkAllRead(c echo.Context) error {
	f, err := h.feed(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"marked": f.MarkAllRead()})
}

// Dismiss DELETE /feed/:id
func (h *Handler) Dismiss(c echo.Context) error {
	f, err := h.feed(c)
	if err != nil {
		return err
	}
	if err := f.Dismiss(c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ClearAll DELETE /feed
func (h *Handler) ClearAll(c echo.Context) error {
	f, err := h.feed(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"cleared": f.ClearAll()})
}

// PushLocal POST /feed/local
func (h *Handler) PushLocal(c echo.Context) error {
	f, err := h.feed(c)
	if err != nil {
		return err
	}

	var in application.LocalInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(in.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	n, added := f.PushLocal(domain.Notification{
		Title:    in.Title,
		Message:  in.Message,
		Category: domain.ParseCategory(string(in.Category)),
	})
	status := http.StatusCreated
	if !added {
		status = http.StatusOK
	}
	return c.JSON(status, n)
}

// Logout POST /feed/logout
func (h *Handler) Logout(c echo.Context) error {
	f, err := h.feed(c)
	if err != nil {
		return err
	}
	f.Logout()
	return c.NoContent(http.StatusNoContent)
}

// --- Toasts ---

// Toasts GET /feed/toasts
func (h *Handler) Toasts(c echo.Context) error {
	f, err := h.feed(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"data": f.Toasts()})
}

// DismissToast DELETE /feed/toasts/:id
func (h *Handler) DismissToast(c echo.Context) error {
	f, err := h.feed(c)
	if err != nil {
		return err
	}
	if !f.DismissToast(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "toast not shown")
	}
	return c.NoContent(http.StatusNoContent)
}

// --- SSE Handler ---

// Stream GET /feed/stream: SSE endpoint
func (h *Handler) Stream(c echo.Context) error {
	f, err := h.feed(c)
	if err != nil {
		return err
	}
	s, _ := mw.SessionFrom(c)

	// SSE headers
	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable Nginx/APISIX buffering

	sendCh := make(chan []byte, 32)
	client := h.hub.Register(s.UserID, sendCh)
	defer h.hub.Unregister(client)

	// Initial state so the client can render without waiting for a change.
	for _, ev := range []struct {
		kind    string
		payload any
	}{
		{application.ChangeSnapshot, f.View()},
		{application.ChangeToasts, f.Toasts()},
	} {
		msg, err := buildSSEMessage(ev.kind, ev.payload)
		if err != nil {
			return err
		}
		if _, err := w.Write(msg); err != nil {
			return nil
		}
	}
	w.Flush()

	log.Info().Str("user", s.UserID).Msg("SSE stream opened")

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case msg, ok := <-sendCh:
			if !ok {
				return nil
			}
			if _, err := w.Write(msg); err != nil {
				return nil
			}
			w.Flush()

		case <-heartbeat.C:
			h.sessions.Touch(s.UserID)
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()

		case <-ctx.Done():
			log.Info().Str("user", s.UserID).Msg("SSE stream closed by client")
			return nil
		}
	}
}

// --- Healthcheck ---

// Health GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "ok",
		"sse_clients": h.hub.ConnectedCount(),
		"sessions":    h.sessions.Len(),
	})
}

// --- Helpers ---

func (h *Handler) feed(c echo.Context) (*application.Feed, error) {
	s, ok := mw.SessionFrom(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	f, err := h.sessions.Get(s)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	return f, nil
}

func httpError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
