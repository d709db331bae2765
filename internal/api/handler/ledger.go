// internal/api/handler/ledger.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"micropatrons/internal/api/types"
	"micropatrons/internal/service"
	"micropatrons/internal/util"
)

// DefaultTimeout bounds a request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// LedgerHandler handles HTTP requests for accounts, activity and transfers.
type LedgerHandler struct {
	service service.LedgerService
	logger  *slog.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(svc service.LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: svc,
		logger:  logger,
	}
}

// Helper function to send JSON responses.
func (h *LedgerHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// Helper function to send error responses.
func (h *LedgerHandler) respondWithError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case util.IsValidation(err), util.IsError(err, util.ErrInsufficientBalance):
		statusCode = http.StatusBadRequest
		message = util.Message(err)
	case util.IsError(err, util.ErrAccountNotFound), util.IsError(err, util.ErrNotFound):
		statusCode = http.StatusNotFound
		message = util.Message(err)
	case util.IsError(err, util.ErrDuplicateEntry):
		statusCode = http.StatusConflict
		message = util.Message(err)
	default:
		h.logger.Error("Unhandled service error", "error", err)
	}

	h.respondWithJSON(w, statusCode, types.ErrorResponse{Error: message})
}

func badRequest(message string) error {
	return util.NewError(util.ErrInvalidInput, message)
}

// queryInt reads a non-negative integer query parameter, falling back to def
// when it is absent or unparsable.
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// ListUsers handles the account listing request.
// GET /users?search=
func (h *LedgerHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, accounts)
}

// GetUser handles the single account request.
// GET /users/{username}
func (h *LedgerHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetAccount(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, account)
}

// GetUserActivity handles the per-account feed request.
// GET /users/{username}/activity?limit=&offset=
func (h *LedgerHandler) GetUserActivity(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", service.DefaultActivityLimit)
	offset := queryInt(r, "offset", 0)

	views, err := h.service.ListAccountActivity(r.Context(), chi.URLParam(r, "username"), limit, offset)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, views)
}

// ListActivity handles the global feed request.
// GET /activity?limit=&offset=
func (h *LedgerHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", service.DefaultActivityLimit)
	offset := queryInt(r, "offset", 0)

	views, err := h.service.ListActivity(r.Context(), limit, offset)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, views)
}

// ActivityStats handles the daily series request.
// GET /activity/stats?days=
func (h *LedgerHandler) ActivityStats(w http.ResponseWriter, r *http.Request) {
	days := service.DefaultStatsDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.respondWithError(w, badRequest("days must be a whole number"))
			return
		}
		days = parsed
	}

	stats, err := h.service.ActivityStats(r.Context(), days)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, stats)
}

// Leaderboard handles the ranking request.
// GET /leaderboard?top=
func (h *LedgerHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.Leaderboard(r.Context(), queryInt(r, "top", 0))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, board)
}

// Victims handles the OpSec victim statistics request.
// GET /victims
func (h *LedgerHandler) Victims(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.VictimStats(r.Context())
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, stats)
}

// Transfer handles the transfer request.
// POST /transfer
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req types.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, badRequest("Invalid request body"))
		return
	}

	amount := decimal.Zero
	if req.Amount != nil {
		amount = *req.Amount
	}

	result, err := h.service.Transfer(r.Context(), req.Sender, req.Receiver, amount)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, transferResponse(result))
}

// ReportOpSec handles the OpSec violation report.
// POST /opsec/report
func (h *LedgerHandler) ReportOpSec(w http.ResponseWriter, r *http.Request) {
	var req types.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, badRequest("Invalid request body"))
		return
	}
	if req.Victim == "" || req.Attacker == "" {
		h.respondWithError(w, badRequest("Victim and attacker are required"))
		return
	}

	result, err := h.service.ReportPenalty(r.Context(), req.Victim, req.Attacker)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, transferResponse(result))
}

func transferResponse(result *service.TransferResult) types.TransferResponse {
	return types.TransferResponse{
		Success:  true,
		Message:  result.Message,
		Sender:   result.Sender,
		Receiver: result.Receiver,
		Activity: result.Activity,
	}
}

// Health reports liveness.
// GET /health
func (h *LedgerHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
}
