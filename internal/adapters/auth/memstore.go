package auth

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

type storedUser struct {
	user           domain.User
	login          string
	credentialHash []byte
}

// MemStore is the process-lifetime user store. Signup/login surfaces live
// elsewhere; the control plane only ever reads it.
type MemStore struct {
	mu      sync.RWMutex
	byUID   map[domain.UserID]*storedUser
	byLogin map[string]*storedUser
}

func NewMemStore() *MemStore {
	return &MemStore{
		byUID:   make(map[domain.UserID]*storedUser),
		byLogin: make(map[string]*storedUser),
	}
}

// Register creates the identity for nickname and seeds it with a
// bcrypt-hashed credential.
func (s *MemStore) Register(nickname, login, credential string) (*domain.User, error) {
	user, err := domain.NewUser(nickname)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	su := &storedUser{user: *user, login: login, credentialHash: hash}
	s.byUID[user.UID] = su
	s.byLogin[login] = su
	return user, nil
}

func (s *MemStore) FindByUID(_ context.Context, uid domain.UserID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	su, ok := s.byUID[uid]
	if !ok {
		return nil, core.ErrNotFound
	}
	u := su.user
	return &u, nil
}

func (s *MemStore) FindByCredential(_ context.Context, login, credential string) (*domain.User, error) {
	s.mu.RLock()
	su, ok := s.byLogin[login]
	s.mu.RUnlock()
	if !ok {
		return nil, core.ErrNotFound
	}
	if bcrypt.CompareHashAndPassword(su.credentialHash, []byte(credential)) != nil {
		return nil, core.ErrUnauthenticated
	}
	u := su.user
	return &u, nil
}
