package service

import (
	"net/http"

	"github.com/ckocyigit/duoledger/internal/auth"
	"github.com/ckocyigit/duoledger/internal/middleware"
)

// Services bundles the handler groups the router mounts.
type Services struct {
	Auth     *AuthService
	Users    *UserService
	Messages *MessageService
	Tasks    *TaskService
	Debts    *DebtService
	Events   *EventService
}

// Routes assembles the API router. Everything except registration and login
// requires a valid Bearer token.
func Routes(jwtManager *auth.JWTManager, s Services) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", s.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", s.Auth.Login)

	protected := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAuth(jwtManager, h)
	}

	mux.Handle("GET /api/auth/me", protected(s.Auth.Me))

	mux.Handle("GET /api/users", protected(s.Users.List))
	mux.Handle("GET /api/users/{id}", protected(s.Users.Get))

	mux.Handle("POST /api/messages", protected(s.Messages.Send))
	mux.Handle("GET /api/messages", protected(s.Messages.List))
	mux.Handle("GET /api/messages/{id}", protected(s.Messages.Get))

	mux.Handle("GET /api/tasks", protected(s.Tasks.List))
	mux.Handle("GET /api/tasks/{id}", protected(s.Tasks.Get))
	mux.Handle("PUT /api/tasks/{id}", protected(s.Tasks.Update))
	mux.Handle("DELETE /api/tasks/{id}", protected(s.Tasks.Delete))

	mux.Handle("GET /api/debts/balance", protected(s.Debts.Balance))
	mux.Handle("GET /api/debts/history", protected(s.Debts.History))
	mux.Handle("POST /api/debts/settle", protected(s.Debts.Settle))

	mux.Handle("GET /api/events", protected(s.Events.Stream))

	return mux
}
