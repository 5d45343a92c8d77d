package service

import (
	"net/http"

	"github.com/ckocyigit/duoledger/internal/storage"
)

// UserService exposes user lookup.
type UserService struct {
	store storage.Store
}

// NewUserService creates a new user service.
func NewUserService(store storage.Store) *UserService {
	return &UserService{store: store}
}

// List returns all users.
func (s *UserService) List(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]userView, len(users))
	for i, u := range users {
		views[i] = viewUser(u)
	}
	writeJSON(w, http.StatusOK, views)
}

// Get returns a single user by ID.
func (s *UserService) Get(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewUser(user))
}
