// Package service exposes the ledger over a JSON HTTP API.
package service

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ckocyigit/duoledger/internal/ledger"
	"github.com/ckocyigit/duoledger/internal/models"
	"github.com/ckocyigit/duoledger/internal/storage"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain errors to HTTP statuses. The core returns typed
// results; the status decision lives here at the boundary.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, ledger.ErrNoActiveDebt):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrAmountExceedsDebt), errors.Is(err, ledger.ErrInvariant):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decode reads the request body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// userView is the public shape of a user (no password hash).
type userView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"created_at"`
}

func viewUser(u *models.User) userView {
	return userView{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

type messageView struct {
	ID             string                 `json:"id"`
	SenderID       string                 `json:"sender_id"`
	ReceiverID     string                 `json:"receiver_id"`
	Content        string                 `json:"content"`
	Classification *models.Classification `json:"classification,omitempty"`
	CreatedAt      int64                  `json:"created_at"`
}

func viewMessage(m *models.Message) messageView {
	return messageView{
		ID:             m.ID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Content:        m.Content,
		Classification: m.Classification,
		CreatedAt:      m.CreatedAt,
	}
}

type taskView struct {
	ID               string            `json:"id"`
	CreatedBy        string            `json:"created_by"`
	AssignedTo       string            `json:"assigned_to"`
	ItemName         string            `json:"item_name"`
	Status           models.TaskStatus `json:"status"`
	RelatedMessageID string            `json:"related_message_id,omitempty"`
	CreatedAt        int64             `json:"created_at"`
	CompletedAt      int64             `json:"completed_at,omitempty"`
}

func viewTask(t *models.Task) taskView {
	return taskView{
		ID:               t.ID,
		CreatedBy:        t.CreatedBy,
		AssignedTo:       t.AssignedTo,
		ItemName:         t.ItemName,
		Status:           t.Status,
		RelatedMessageID: t.RelatedMessageID,
		CreatedAt:        t.CreatedAt,
		CompletedAt:      t.CompletedAt,
	}
}

type debtView struct {
	ID         string            `json:"id"`
	DebtorID   string            `json:"debtor_id"`
	CreditorID string            `json:"creditor_id"`
	Amount     string            `json:"amount"`
	Status     models.DebtStatus `json:"status"`
	CreatedAt  int64             `json:"created_at"`
	SettledAt  int64             `json:"settled_at,omitempty"`
}

func viewDebt(d *models.Debt) debtView {
	return debtView{
		ID:         d.ID,
		DebtorID:   d.DebtorID,
		CreditorID: d.CreditorID,
		Amount:     d.Amount.String(),
		Status:     d.Status,
		CreatedAt:  d.CreatedAt,
		SettledAt:  d.SettledAt,
	}
}
