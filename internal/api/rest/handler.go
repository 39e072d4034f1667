// Package rest exposes the lucky money session engine over a thin JSON
// HTTP API. Handlers translate requests into engine calls and engine
// errors into status codes; they hold no game state of their own.
package rest

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/louisbranch/luckymoney/internal/envelope/domain"
	"github.com/louisbranch/luckymoney/internal/envelope/service"
	apperrors "github.com/louisbranch/luckymoney/internal/platform/errors"
)

// Engine is the session engine surface the handlers depend on.
type Engine interface {
	Status() domain.Status
	Snapshot() domain.Session
	Join(ctx context.Context, playerID, playerName string) (service.JoinResult, error)
	Open(ctx context.Context, playerID, playerName string) (service.OpenResult, error)
	Reset(ctx context.Context) (service.ResetResult, error)
}

// Publisher receives committed session events for subscriber fan-out.
type Publisher interface {
	Publish(event domain.Event)
	Subscribers() int
}

// Handler maps HTTP routes onto engine operations.
type Handler struct {
	engine    Engine
	publisher Publisher
	baseURL   string
}

// NewHandler builds a handler. baseURL is the externally reachable
// server address used to derive share links.
func NewHandler(engine Engine, publisher Publisher, baseURL string) *Handler {
	return &Handler{
		engine:    engine,
		publisher: publisher,
		baseURL:   baseURL,
	}
}

// RegisterRoutes attaches all API routes to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", h.handleStatus)
	mux.HandleFunc("POST /api/join", h.handleJoin)
	mux.HandleFunc("POST /api/open", h.handleOpen)
	mux.HandleFunc("POST /api/reset", h.handleReset)
	mux.HandleFunc("GET /api/admin/stats", h.handleAdminStats)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

type playerRequest struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type joinResponse struct {
	Success        bool   `json:"success"`
	AlreadyJoined  bool   `json:"alreadyJoined"`
	SessionID      string `json:"sessionId"`
	CurrentPlayers int    `json:"currentPlayers"`
}

type openResponse struct {
	Amount             int64 `json:"amount"`
	RemainingMoney     int64 `json:"remainingMoney"`
	RemainingEnvelopes int   `json:"remainingEnvelopes"`
	IsGameFinished     bool  `json:"isGameFinished"`
}

type resetResponse struct {
	SessionID string `json:"sessionId"`
	ShareURL  string `json:"shareUrl"`
}

type adminStatsResponse struct {
	Session     domain.Session `json:"session"`
	ShareURL    string         `json:"shareUrl"`
	OpenedTotal int64          `json:"openedTotal"`
	Subscribers int            `json:"subscribers"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Status())
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePlayerRequest(w, r)
	if !ok {
		return
	}

	result, err := h.engine.Join(r.Context(), req.PlayerID, req.PlayerName)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publish(result.Event)

	writeJSON(w, http.StatusOK, joinResponse{
		Success:        true,
		AlreadyJoined:  result.AlreadyJoined,
		SessionID:      result.SessionID,
		CurrentPlayers: result.CurrentPlayers,
	})
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePlayerRequest(w, r)
	if !ok {
		return
	}

	result, err := h.engine.Open(r.Context(), req.PlayerID, req.PlayerName)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publish(result.Event)

	writeJSON(w, http.StatusOK, openResponse{
		Amount:             result.Amount,
		RemainingMoney:     result.RemainingMoney,
		RemainingEnvelopes: result.RemainingEnvelopes,
		IsGameFinished:     result.IsGameFinished,
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.Reset(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	h.publish(result.Event)

	writeJSON(w, http.StatusOK, resetResponse{
		SessionID: result.SessionID,
		ShareURL:  h.shareURL(result.SessionID),
	})
}

func (h *Handler) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	session := h.engine.Snapshot()
	writeJSON(w, http.StatusOK, adminStatsResponse{
		Session:     session,
		ShareURL:    h.shareURL(session.ID),
		OpenedTotal: session.OpenedTotal(),
		Subscribers: h.publisher.Subscribers(),
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) publish(event *domain.Event) {
	if event == nil || h.publisher == nil {
		return
	}
	h.publisher.Publish(*event)
}

func (h *Handler) shareURL(sessionID string) string {
	return h.baseURL + "/?session=" + sessionID
}

func decodePlayerRequest(w http.ResponseWriter, r *http.Request) (playerRequest, bool) {
	var req playerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeMissingFields, "invalid request body", err))
		return playerRequest{}, false
	}
	return req, true
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	writeJSON(w, code.HTTPStatus(), errorBody{
		Error: errorDetail{Code: code, Message: err.Error()},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("rest: encode response: %v", err)
	}
}
