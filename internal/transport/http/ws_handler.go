package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"quizwale-service/internal/app"
	"quizwale-service/internal/auth"
	"quizwale-service/internal/domain"
)

// WSHandler runs server-timed quiz attempts over a websocket.
type WSHandler struct {
	service   *app.QuizService
	upgrader  websocket.Upgrader
	tickEvery time.Duration
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		tickEvery: time.Second,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Answer string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type startedPayload struct {
	Quiz    domain.Quiz         `json:"quiz"`
	Start   domain.AttemptStart `json:"start"`
	Attempt app.AttemptSnapshot `json:"attempt"`
}

type resultPayload struct {
	Result  domain.SubmitResult `json:"result"`
	Attempt app.AttemptSnapshot `json:"attempt"`
}

// ServeWS starts an attempt for the authenticated caller. The server owns the
// countdown: it ticks once per interval, applies select/next/previous/submit
// messages, and scores the attempt when it is submitted or time runs out.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		writeError(w, domain.Invalid("quizId", "is required"))
		return
	}
	caller := auth.FromContext(r.Context())
	if caller == nil {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	ctx := r.Context()
	quiz, err := h.service.GetQuiz(ctx, caller, quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	start, err := h.service.StartAttempt(ctx, caller, quizID)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	attempt := app.NewAttempt(quiz)
	if err := attempt.Start(); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	if err := conn.WriteJSON(outboundMessage[startedPayload]{Type: "started", Payload: startedPayload{
		Quiz:    quiz.Public(),
		Start:   start,
		Attempt: attempt.Snapshot(),
	}}); err != nil {
		return
	}

	stop := make(chan struct{})
	defer close(stop)
	inbound := make(chan inboundMessage)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case inbound <- msg:
			case <-stop:
				return
			}
		}
	}()

	ticker := time.NewTicker(h.tickEvery)
	defer ticker.Stop()

	meta := app.SubmitMeta{IPAddress: r.RemoteAddr, UserAgent: r.UserAgent()}
	for {
		if attempt.Snapshot().State == app.AttemptSubmitted {
			h.finish(ctx, conn, caller, quizID, attempt, meta)
			return
		}
		var out any
		select {
		case <-readerDone:
			log.Printf("attempt %s/%s abandoned", quizID, caller.UserID)
			return
		case <-ticker.C:
			if _, err := attempt.Tick(); err != nil {
				out = errorMessage(err)
			} else {
				out = outboundMessage[app.AttemptSnapshot]{Type: "tick", Payload: attempt.Snapshot()}
			}
		case msg := <-inbound:
			out = h.apply(attempt, msg)
		}
		if attempt.Snapshot().State == app.AttemptSubmitted {
			continue
		}
		if err := conn.WriteJSON(out); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}

func (h *WSHandler) apply(attempt *app.Attempt, msg inboundMessage) any {
	var err error
	switch msg.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid select payload"}}
		}
		err = attempt.Select(payload.Answer)
	case "next":
		_, err = attempt.Next()
	case "previous":
		err = attempt.Previous()
	case "submit":
		err = attempt.Submit()
	default:
		return outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
	}
	if err != nil {
		return errorMessage(err)
	}
	return outboundMessage[app.AttemptSnapshot]{Type: "question", Payload: attempt.Snapshot()}
}

func (h *WSHandler) finish(ctx context.Context, conn *websocket.Conn, caller *domain.Identity, quizID string, attempt *app.Attempt, meta app.SubmitMeta) {
	req, err := attempt.Result()
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	result, err := h.service.Submit(ctx, caller, quizID, req, meta)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	if err := conn.WriteJSON(outboundMessage[resultPayload]{Type: "result", Payload: resultPayload{
		Result:  result,
		Attempt: attempt.Snapshot(),
	}}); err != nil {
		log.Printf("ws write error: %v", err)
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "attempt submitted"),
		time.Now().Add(time.Second))
}

func errorMessage(err error) outboundMessage[errorPayload] {
	return outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}
