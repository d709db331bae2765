// internal/api/types/response.go
package types

import (
	"github.com/shopspring/decimal"

	"micropatrons/internal/domain"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// TransferRequest is the body of POST /transfer. A missing amount decodes
// to nil.
type TransferRequest struct {
	Sender   string           `json:"sender"`
	Receiver string           `json:"receiver"`
	Amount   *decimal.Decimal `json:"amount"`
}

// ReportRequest is the body of POST /opsec/report.
type ReportRequest struct {
	Victim   string `json:"victim"`
	Attacker string `json:"attacker"`
}

// TransferResponse is returned by both mutating endpoints.
type TransferResponse struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Sender   domain.Account  `json:"sender"`
	Receiver domain.Account  `json:"receiver"`
	Activity domain.Activity `json:"activity"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
