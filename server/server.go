package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	turnnode "github.com/Dispatch-AI-com/AI/agent/nodes"
	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

type Config struct {
	Addr            string        `split_words:"true" default:":8080"`
	ReadTimeout     time.Duration `split_words:"true" default:"10s"`
	WriteTimeout    time.Duration `split_words:"true" default:"60s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

// Handler exposes the turn strategy over HTTP. One strategy instance serves
// all calls; per-call state lives in the record store.
type Handler struct {
	strategy contractx.Strategy
	store    statex.Store
	now      func() time.Time
}

func NewHandler(strategy contractx.Strategy, store statex.Store) (*Handler, error) {
	if strategy == nil {
		return nil, errors.New("turn strategy is required")
	}
	if store == nil {
		return nil, errors.New("record store is required")
	}
	return &Handler{
		strategy: strategy,
		store:    store,
		now:      time.Now,
	}, nil
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ai/calls", h.handleCreateCall)
	mux.HandleFunc("POST /ai/conversation", h.handleConversation)
	mux.HandleFunc("POST /ai/reply", h.handleReply)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	return mux
}

// NewServer wraps the handler's routes in an http.Server with sane timeouts.
func NewServer(cfg Config, h *Handler) *http.Server {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:         addr,
		Handler:      h.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

type createCallRequest struct {
	CallID       string         `json:"callSid"`
	Company      statex.Company `json:"company"`
	CallerNumber string         `json:"callerNumber"`
	StartedAt    *time.Time     `json:"callStartAt,omitempty"`
}

// handleCreateCall seeds the call record at call start. Idempotent: an
// existing record is left untouched.
func (h *Handler) handleCreateCall(w http.ResponseWriter, r *http.Request) {
	var req createCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	callID := strings.TrimSpace(req.CallID)
	if callID == "" {
		writeError(w, http.StatusBadRequest, "callSid is required")
		return
	}

	ctx := r.Context()
	if _, err := h.store.Load(ctx, callID); err == nil {
		writeJSON(w, http.StatusOK, map[string]string{"callSid": callID})
		return
	} else if !errors.Is(err, statex.ErrRecordNotFound) {
		h.writeTurnError(w, callID, err)
		return
	}

	now := h.now().UTC()
	rec := statex.NewCallRecord(callID, req.Company, strings.TrimSpace(req.CallerNumber), now)
	if req.StartedAt != nil {
		rec.StartedAt = req.StartedAt.UTC()
	}

	if err := h.store.Save(r.Context(), rec); err != nil {
		h.writeTurnError(w, callID, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"callSid": callID})
}

type customerMessage struct {
	Speaker   string     `json:"speaker"`
	Message   string     `json:"message"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

type conversationRequest struct {
	CallID          string          `json:"callSid"`
	CustomerMessage customerMessage `json:"customerMessage"`
}

type conversationResponse struct {
	AIResponse   agentMessage `json:"aiResponse"`
	ShouldHangup bool         `json:"shouldHangup"`
}

type agentMessage struct {
	Speaker   string    `json:"speaker"`
	Message   string    `json:"message"`
	StartedAt time.Time `json:"startedAt"`
}

func (h *Handler) handleConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.strategy.ProcessTurn(r.Context(), req.CallID, req.CustomerMessage.Message)
	if err != nil {
		h.writeTurnError(w, req.CallID, err)
		return
	}

	writeJSON(w, http.StatusOK, conversationResponse{
		AIResponse: agentMessage{
			Speaker:   "AI",
			Message:   result.ReplyText,
			StartedAt: h.now().UTC(),
		},
		ShouldHangup: result.ShouldHangup,
	})
}

type replyRequest struct {
	CallID  string `json:"callSid"`
	Message string `json:"message"`
}

type replyResponse struct {
	ReplyText string `json:"replyText"`
}

func (h *Handler) handleReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.strategy.ProcessTurn(r.Context(), req.CallID, req.Message)
	if err != nil {
		h.writeTurnError(w, req.CallID, err)
		return
	}

	writeJSON(w, http.StatusOK, replyResponse{ReplyText: result.ReplyText})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeTurnError maps domain errors to HTTP statuses: a missing record is an
// unprocessable request (the call was never registered), a malformed record
// or bad input is a client error, anything else is internal.
func (h *Handler) writeTurnError(w http.ResponseWriter, callID string, err error) {
	switch {
	case errors.Is(err, statex.ErrRecordNotFound):
		writeError(w, http.StatusUnprocessableEntity, "call record not found")
	case errors.Is(err, statex.ErrRecordMalformed),
		errors.Is(err, turnnode.ErrInvalidCall),
		errors.Is(err, turnnode.ErrInvalidUtterance),
		errors.Is(err, contractx.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().
			Err(err).
			Str("call_id", callID).
			Msg("turn processing failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
