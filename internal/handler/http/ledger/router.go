package ledger_http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finledger/internal/app/ledger"
)

func RegisterRoutes(r chi.Router, s ledger.LedgerService, authenticator func(http.Handler) http.Handler, l *zap.Logger) {
	handler := NewLedgerHandler(s, l.With(zap.String("component", "LedgerHTTPHandler")))

	r.Route("/api/v1/statements", func(r chi.Router) {
		r.Use(authenticator)
		r.Post("/deposit", handler.DepositHandler)
		r.Post("/withdraw", handler.WithdrawHandler)
		r.Post("/transfers/{user_id}", handler.TransferHandler)
		r.Get("/balance", handler.BalanceHandler)
		r.Get("/{statement_id}", handler.StatementOperationHandler)
	})
}
