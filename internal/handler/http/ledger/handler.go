package ledger_http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finledger/internal/app/ledger"
	"finledger/internal/domain"
	auth_middleware "finledger/internal/handler/http/middleware"
)

type LedgerHandler struct {
	service ledger.LedgerService
	logger  *zap.Logger
}

func NewLedgerHandler(s ledger.LedgerService, l *zap.Logger) *LedgerHandler {
	return &LedgerHandler{service: s, logger: l}
}

type OperationRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type StatementResponse struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	Type        string  `json:"type"`
	Amount      string  `json:"amount"`
	Description string  `json:"description"`
	SenderID    *string `json:"sender_id,omitempty"`
	ReceiverID  *string `json:"receiver_id,omitempty"`
	TransferID  *string `json:"transfer_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type TransferResponse struct {
	TransferID string            `json:"transfer_id"`
	Debit      StatementResponse `json:"debit"`
	Credit     StatementResponse `json:"credit"`
}

type BalanceResponse struct {
	Balance    string              `json:"balance"`
	Statements []StatementResponse `json:"statements"`
}

func (h *LedgerHandler) DepositHandler(w http.ResponseWriter, r *http.Request) {
	h.createStatement(w, r, domain.OperationDeposit)
}

func (h *LedgerHandler) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	h.createStatement(w, r, domain.OperationWithdraw)
}

func (h *LedgerHandler) createStatement(w http.ResponseWriter, r *http.Request, opType domain.OperationType) {
	userID, ok := auth_middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	statement, err := h.service.CreateStatement(r.Context(), ledger.CreateStatementInput{
		UserID:      userID,
		Type:        opType,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		h.respondLedgerError(w, err, userID)
		return
	}

	respondJSON(w, http.StatusCreated, toStatementResponse(statement))
}

func (h *LedgerHandler) TransferHandler(w http.ResponseWriter, r *http.Request) {
	senderID, ok := auth_middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	receiverID := chi.URLParam(r, "user_id")
	if receiverID == "" {
		http.Error(w, "Receiver user ID is required", http.StatusBadRequest)
		return
	}

	var req OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	transfer, err := h.service.CreateTransfer(r.Context(), senderID, receiverID, req.Amount, req.Description)
	if err != nil {
		h.respondLedgerError(w, err, senderID)
		return
	}

	respondJSON(w, http.StatusCreated, TransferResponse{
		TransferID: *transfer.Debit.TransferID,
		Debit:      toStatementResponse(transfer.Debit),
		Credit:     toStatementResponse(transfer.Credit),
	})
}

func (h *LedgerHandler) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth_middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ledger.ErrBalanceUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get balance", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := BalanceResponse{
		Balance:    balance.Balance.String(),
		Statements: make([]StatementResponse, 0, len(balance.Statements)),
	}
	for i := range balance.Statements {
		resp.Statements = append(resp.Statements, toStatementResponse(&balance.Statements[i]))
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *LedgerHandler) StatementOperationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth_middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	statementID := chi.URLParam(r, "statement_id")
	statement, err := h.service.GetStatementOperation(r.Context(), userID, statementID)
	if err != nil {
		h.respondLedgerError(w, err, userID)
		return
	}

	respondJSON(w, http.StatusOK, toStatementResponse(statement))
}

func (h *LedgerHandler) respondLedgerError(w http.ResponseWriter, err error, userID string) {
	switch {
	case errors.Is(err, ledger.ErrUserNotFound):
		http.Error(w, "User not found", http.StatusNotFound)
	case errors.Is(err, ledger.ErrStatementNotFound):
		http.Error(w, "Statement not found", http.StatusNotFound)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		http.Error(w, "Insufficient funds", http.StatusBadRequest)
	case errors.Is(err, ledger.ErrInvalidOperation):
		http.Error(w, "Invalid operation", http.StatusBadRequest)
	default:
		h.logger.Error("Ledger operation failed", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func toStatementResponse(statement *domain.Statement) StatementResponse {
	return StatementResponse{
		ID:          statement.ID,
		UserID:      statement.UserID,
		Type:        string(statement.Type),
		Amount:      statement.Amount.String(),
		Description: statement.Description,
		SenderID:    statement.SenderID,
		ReceiverID:  statement.ReceiverID,
		TransferID:  statement.TransferID,
		CreatedAt:   statement.CreatedAt.Format(time.RFC3339),
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
