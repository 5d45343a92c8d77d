package service

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/ckocyigit/duoledger/internal/ledger"
	"github.com/ckocyigit/duoledger/internal/middleware"
	"github.com/ckocyigit/duoledger/internal/models"
	"github.com/ckocyigit/duoledger/internal/storage"
)

// DebtService exposes balances, debt history and manual settlement.
type DebtService struct {
	store  storage.Store
	engine *ledger.Engine
}

// NewDebtService creates a new debt service.
func NewDebtService(store storage.Store, engine *ledger.Engine) *DebtService {
	return &DebtService{store: store, engine: engine}
}

type balanceResponse struct {
	UserID         string `json:"user_id"`
	OtherUserID    string `json:"other_user_id,omitempty"`
	TotalOwed      string `json:"total_owed"`
	TotalToCollect string `json:"total_to_collect"`
	NetBalance     string `json:"net_balance"`
}

// Balance returns the current user's net position: against one user when
// other_user_id is given, otherwise against everyone.
func (s *DebtService) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	otherID := r.URL.Query().Get("other_user_id")

	var (
		balance *ledger.Balance
		err     error
	)
	if otherID != "" {
		if _, err := s.store.GetUserByID(r.Context(), otherID); err != nil {
			writeError(w, err)
			return
		}
		balance, err = s.engine.NetBalance(r.Context(), userID, otherID)
	} else {
		balance, err = s.engine.TotalBalance(r.Context(), userID)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		UserID:         userID,
		OtherUserID:    otherID,
		TotalOwed:      balance.AOwes.String(),
		TotalToCollect: balance.BOwes.String(),
		NetBalance:     balance.Net.String(),
	})
}

// History returns the current user's debts, newest first, optionally filtered
// by status.
func (s *DebtService) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := models.DebtStatus(q.Get("status"))
	if status != "" && status != models.DebtActive && status != models.DebtSettled {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	debts, err := s.store.ListDebts(r.Context(), storage.DebtFilter{
		ParticipantID: middleware.GetUserID(r.Context()),
		Status:        status,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]debtView, len(debts))
	for i, d := range debts {
		views[i] = viewDebt(d)
	}
	writeJSON(w, http.StatusOK, views)
}

type settleRequest struct {
	CreditorID string          `json:"creditor_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// Settle records an explicit debt payment from the current user to the given
// creditor. Unlike the payment-message path this rejects overpayment.
func (s *DebtService) Settle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := decode(r, &req); err != nil || req.CreditorID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "creditor_id and amount are required"})
		return
	}

	result, err := s.engine.SettleManual(r.Context(), middleware.GetUserID(r.Context()), req.CreditorID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":          "debt settled successfully",
		"settled_amount":   result.SettledAmount.String(),
		"settled_debt_ids": result.SettledDebtIDs,
		"remaining_debt":   result.RemainingDebt.String(),
	})
}
