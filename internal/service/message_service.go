package service

import (
	"net/http"
	"strconv"

	"github.com/ckocyigit/duoledger/internal/ledger"
	"github.com/ckocyigit/duoledger/internal/middleware"
	"github.com/ckocyigit/duoledger/internal/storage"
)

// MessageService exposes message intake and history.
type MessageService struct {
	store  storage.Store
	engine *ledger.Engine
}

// NewMessageService creates a new message service.
func NewMessageService(store storage.Store, engine *ledger.Engine) *MessageService {
	return &MessageService{store: store, engine: engine}
}

type sendRequest struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

type intakeResponse struct {
	Message        messageView               `json:"message"`
	Classification any                       `json:"classification"`
	Task           *taskView                 `json:"task,omitempty"`
	Expense        any                       `json:"expense,omitempty"`
	Debt           *debtView                 `json:"debt,omitempty"`
	Payment        *ledger.SettlementOutcome `json:"payment,omitempty"`
}

// Send runs the full intake pipeline for one message: persist, classify,
// mutate the ledger, notify.
func (s *MessageService) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decode(r, &req); err != nil || req.ReceiverID == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "receiver_id and content are required"})
		return
	}

	result, err := s.engine.Intake(r.Context(), middleware.GetUserID(r.Context()), req.ReceiverID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := intakeResponse{
		Message:        viewMessage(result.Message),
		Classification: result.Classification,
		Payment:        result.Payment,
	}
	if result.Task != nil {
		v := viewTask(result.Task)
		resp.Task = &v
	}
	if result.Expense != nil {
		resp.Expense = map[string]any{
			"id":         result.Expense.ID,
			"task_id":    result.Expense.TaskID,
			"paid_by":    result.Expense.PaidBy,
			"amount":     result.Expense.Amount.String(),
			"created_at": result.Expense.CreatedAt,
		}
	}
	if result.Debt != nil {
		v := viewDebt(result.Debt)
		resp.Debt = &v
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List returns message history for the current user, newest first.
// other_user_id narrows to one conversation.
func (s *MessageService) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	msgs, err := s.store.ListMessages(r.Context(), middleware.GetUserID(r.Context()), q.Get("other_user_id"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]messageView, len(msgs))
	for i, m := range msgs {
		views[i] = viewMessage(m)
	}
	writeJSON(w, http.StatusOK, views)
}

// Get returns a single message; only its participants may read it.
func (s *MessageService) Get(w http.ResponseWriter, r *http.Request) {
	msg, err := s.store.GetMessage(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	userID := middleware.GetUserID(r.Context())
	if msg.SenderID != userID && msg.ReceiverID != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not authorized to view this message"})
		return
	}
	writeJSON(w, http.StatusOK, viewMessage(msg))
}
