package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"
	"github.com/cwrk-planet/presence-service/internal/security"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// CloseUnauthorized — код закрытия для непрошедших аутентификацию/авторизацию.
const CloseUnauthorized = 4001

type PresenceSvc interface {
	SetStatus(ctx context.Context, userID string, status domain.Status, deviceType string, ts time.Time) (*domain.PresenceState, bool, error)
	GetLatest(ctx context.Context, userID string) (*domain.PresenceState, error)
}

type Authenticator interface {
	Authenticate(token string) (security.Identity, error)
}

type Server struct {
	upgrader    websocket.Upgrader
	hub         *Hub
	dispatcher  *Dispatcher
	presenceSvc PresenceSvc
	auth        Authenticator

	sendBuffer int
	pingEvery  time.Duration
}

func NewServer(hub *Hub, dispatcher *Dispatcher, presence PresenceSvc, auth Authenticator, sendBuffer int, pingEvery time.Duration) *Server {
	if pingEvery <= 0 {
		pingEvery = 15 * time.Second
	}
	return &Server{
		hub:         hub,
		dispatcher:  dispatcher,
		presenceSvc: presence,
		auth:        auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sendBuffer: sendBuffer,
		pingEvery:  pingEvery,
	}
}

// WS endpoint: GET /ws/users/{id}/presence?token=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(userID); err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	token := extractToken(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	// аутентификация после upgrade, чтобы клиент получил различимый close code
	ident, err := s.auth.Authenticate(token)
	if err != nil || (ident.UserID != userID && !ident.Staff) {
		closeWithCode(conn, CloseUnauthorized, "unauthorized")
		return
	}

	c := newWSConn(conn, userID, s.sendBuffer)
	s.hub.Add(c)
	slog.Info("ws connected", "user", userID, "subscriber", ident.UserID)

	go c.writeLoop(s.pingEvery)

	if err := s.sendSnapshot(r.Context(), c); err != nil {
		slog.Warn("ws send initial snapshot failed", "user", userID, "err", err)
	}

	s.readLoop(r.Context(), c, ident)

	s.hub.Remove(c)
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "user", userID, "err", err)
	}
	slog.Info("ws disconnected", "user", userID, "subscriber", ident.UserID)
}

// sendSnapshot отправляет текущее состояние новому подписчику.
// Отсутствие presence — не ошибка: снапшот просто не шлётся.
func (s *Server) sendSnapshot(ctx context.Context, c *wsConn) error {
	st, err := s.presenceSvc.GetLatest(ctx, c.userID)
	if err != nil {
		if errors.Is(err, domain.ErrPresenceNotFound) {
			return nil
		}
		return err
	}
	return c.Send(s.dispatcher.Event(ctx, st))
}

func (s *Server) readLoop(ctx context.Context, c *wsConn, ident security.Identity) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case TypePresenceUpdate:
			var req PresenceUpdateRequest
			if decode(msg.Payload, &req) != nil {
				continue
			}
			status := domain.Status(req.Status)
			if !status.Valid() {
				// невалидный статус игнорируется, не рвёт соединение
				continue
			}
			st, changed, err := s.presenceSvc.SetStatus(ctx, c.userID, status, req.DeviceType, time.Time{})
			if err != nil {
				slog.Debug("ws presence update failed", "user", c.userID, "err", err)
				continue
			}
			if changed {
				s.dispatcher.Publish(ctx, st)
			}
		default:
			// ignore
		}
	}
}

// --- helpers ---

func extractToken(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func closeWithCode(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()
}

func decode(payload interface{}, dst interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, dst)
}
