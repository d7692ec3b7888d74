package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/domain"
)

// WSHandler exposes the ledger operations over a websocket so offline-capable
// clients can flush buffered events (with their opIds) on one connection.
type WSHandler struct {
	ledger   *app.LedgerService
	upgrader websocket.Upgrader
}

func NewWSHandler(ledger *app.LedgerService) *WSHandler {
	return &WSHandler{
		ledger: ledger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type eventPayload struct {
	OpID     string `json:"opId"`
	XPDelta  *int   `json:"xpDelta"`
	LessonID string `json:"lessonId"`
}

type quizPayload struct {
	QuizID  string          `json:"quizId"`
	Answers []domain.Answer `json:"answers"`
}

type progressPayload struct {
	Record    domain.ProgressRecord `json:"record"`
	Applied   bool                  `json:"applied"`
	NewBadges []string              `json:"newBadges,omitempty"`
}

type quizResultPayload struct {
	Attempt   domain.Attempt        `json:"attempt"`
	Record    domain.ProgressRecord `json:"record"`
	NewBadges []string              `json:"newBadges,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the ledger.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("studentId")
	if studentID == "" {
		http.Error(w, "missing studentId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "event":
			var payload eventPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.writeError(conn, "validation", "invalid event payload")
				continue
			}
			delta := h.ledger.Options().LessonXP
			if payload.XPDelta != nil {
				delta = *payload.XPDelta
			}
			result, err := h.ledger.ApplyEvent(r.Context(), app.ApplyEventInput{
				StudentID: studentID,
				OpID:      payload.OpID,
				XPDelta:   delta,
				LessonID:  payload.LessonID,
			})
			if err != nil {
				h.writeDomainError(conn, err)
				continue
			}
			h.write(conn, "progress", progressPayload{Record: result.Record, Applied: result.Applied, NewBadges: result.NewBadges})
		case "quiz":
			var payload quizPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.writeError(conn, "validation", "invalid quiz payload")
				continue
			}
			result, err := h.ledger.SubmitQuizAttempt(r.Context(), studentID, payload.QuizID, payload.Answers)
			if err != nil {
				h.writeDomainError(conn, err)
				continue
			}
			h.write(conn, "quizResult", quizResultPayload{Attempt: result.Attempt, Record: result.Record, NewBadges: result.NewBadges})
		case "progress":
			record, err := h.ledger.GetProgress(r.Context(), studentID)
			if err != nil {
				h.writeDomainError(conn, err)
				continue
			}
			h.write(conn, "progress", progressPayload{Record: record, Applied: false})
		case "attempts":
			attempts, err := h.ledger.ListAttempts(r.Context(), studentID)
			if err != nil {
				h.writeDomainError(conn, err)
				continue
			}
			h.write(conn, "attempts", attempts)
		default:
			h.writeError(conn, "validation", "unsupported message type")
		}
	}
}

func (h *WSHandler) write(conn *websocket.Conn, msgType string, payload any) {
	if err := conn.WriteJSON(outboundMessage[any]{Type: msgType, Payload: payload}); err != nil {
		log.Printf("ws write error: %v", err)
	}
}

func (h *WSHandler) writeError(conn *websocket.Conn, code, message string) {
	h.write(conn, "error", errorPayload{Code: code, Message: message})
}

func (h *WSHandler) writeDomainError(conn *websocket.Conn, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		h.writeError(conn, "validation", err.Error())
	case errors.Is(err, domain.ErrLessonNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrProgressNotFound):
		h.writeError(conn, "not_found", err.Error())
	case errors.Is(err, domain.ErrAttemptExists):
		h.writeError(conn, "attempt_exists", err.Error())
	case errors.Is(err, domain.ErrConflict):
		h.writeError(conn, "conflict", err.Error())
	case errors.Is(err, domain.ErrStorage):
		h.writeError(conn, "storage", err.Error())
	default:
		h.writeError(conn, "internal", err.Error())
	}
}
