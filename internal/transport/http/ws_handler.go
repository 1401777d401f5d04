package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"quickrev/internal/app"
	"quickrev/internal/auth"
	"quickrev/internal/domain"

	"github.com/gorilla/websocket"
)

// WSHandler serves one study view per websocket connection.
type WSHandler struct {
	service       *app.StudyService
	identity      auth.Provider
	countdownStep time.Duration
	upgrader      websocket.Upgrader
}

func NewWSHandler(service *app.StudyService, identity auth.Provider, countdownStep time.Duration) *WSHandler {
	return &WSHandler{
		service:       service,
		identity:      identity,
		countdownStep: countdownStep,
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

type modePayload struct {
	Mode string `json:"mode"`
}

type answerPayload struct {
	Value string `json:"value"`
	Slot  *int   `json:"slot,omitempty"`
}

type countdownPayload struct {
	Remaining int `json:"remaining"`
}

type completePayload struct {
	Score   int `json:"score"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message   string `json:"message"`
	Kind      string `json:"kind,omitempty"`
	Retryable bool   `json:"retryable"`
}

var errInputLocked = errors.New("answer is locked after checking")

// ServeWS upgrades HTTP requests to websockets and drives a study session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		http.Error(w, "missing fileId", http.StatusBadRequest)
		return
	}
	ident, err := h.identity.Identify(r)
	if err != nil || !ident.Authenticated {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}
	var background sync.WaitGroup

	v := &view{handler: h, emit: emit, cue: newWSCue(emit)}
	if session := v.open(ctx, conn, ident.UserID, fileID); session != nil {
		v.session = session
		v.serve(ctx, conn, &background)
		if err := h.service.Close(session.ID()); err != nil {
			log.Printf("close session %s: %v", session.ID(), err)
		}
	} else {
		_ = v.cue.Close()
	}

	cancel()
	close(closeSignals)
	background.Wait()
	close(send)
	<-writerDone
}

// view is the per-connection state: the session plus its outbound channel.
type view struct {
	handler *WSHandler
	emit    func(outboundMessage[any])
	cue     *wsCue
	session *app.Session
}

// open loads the records, waiting for retry requests after retryable failures.
func (v *view) open(ctx context.Context, conn *websocket.Conn, userID, fileID string) *app.Session {
	for {
		session, err := v.handler.service.Open(ctx, userID, fileID, v.cue)
		if err == nil {
			log.Printf("session %s opened for user %s file %s", session.ID(), userID, fileID)
			v.emit(outboundMessage[any]{Type: "state", Payload: session.Snapshot()})
			return session
		}

		log.Printf("load flashcards %s: %v", fileID, err)
		v.emitError(err)
		if !domain.Retryable(err) {
			return nil
		}

		if !waitForRetry(conn, v) {
			return nil
		}
	}
}

func waitForRetry(conn *websocket.Conn, v *view) bool {
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return false
		}
		if inbound.Type == "retry" {
			return true
		}
		v.emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "flashcards are not loaded", Retryable: true}})
	}
}

func (v *view) serve(ctx context.Context, conn *websocket.Conn, background *sync.WaitGroup) {
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		before := v.session.Phase()
		if err := v.apply(inbound); err != nil {
			v.emitError(err)
			continue
		}

		snap := v.session.Snapshot()
		if before != app.PhaseComplete && snap.Phase == app.PhaseComplete && snap.Score != nil {
			percent := 0
			if snap.Percent != nil {
				percent = *snap.Percent
			}
			v.emit(outboundMessage[any]{Type: "complete", Payload: completePayload{Score: *snap.Score, Total: snap.Total, Percent: percent}})
		}
		v.emit(outboundMessage[any]{Type: "state", Payload: snap})

		if inbound.Type == "selectMode" {
			background.Add(1)
			go func() {
				defer background.Done()
				v.runCountdown(ctx)
			}()
		}
	}
}

func (v *view) apply(inbound inboundMessage) error {
	s := v.session
	switch inbound.Type {
	case "selectMode":
		var payload modePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid mode payload")
		}
		mode, err := domain.ParseMode(payload.Mode)
		if err != nil {
			return err
		}
		return s.SelectMode(mode)
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid answer payload")
		}
		if s.InputLocked() {
			return errInputLocked
		}
		if payload.Slot != nil {
			return s.SubmitSlot(*payload.Slot, payload.Value)
		}
		return s.SubmitAnswer(payload.Value)
	case "check":
		_, err := s.Check()
		return err
	case "flip":
		return s.Flip()
	case "next":
		return s.Navigate(1)
	case "prev":
		return s.Navigate(-1)
	case "restart":
		return s.Restart()
	default:
		return errors.New("unsupported message type")
	}
}

func (v *view) runCountdown(ctx context.Context) {
	err := app.RunCountdown(ctx, v.session, v.handler.countdownStep, func(remaining int) {
		v.emit(outboundMessage[any]{Type: "countdown", Payload: countdownPayload{Remaining: remaining}})
	})
	if err != nil {
		return
	}
	v.emit(outboundMessage[any]{Type: "state", Payload: v.session.Snapshot()})
}

func (v *view) emitError(err error) {
	payload := errorPayload{Message: err.Error(), Retryable: domain.Retryable(err)}
	if v.session == nil {
		payload.Kind = domain.ErrorKind(err)
	}
	v.emit(outboundMessage[any]{Type: "error", Payload: payload})
}
