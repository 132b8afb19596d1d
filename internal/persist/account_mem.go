package persist

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MemAccountRepo keeps accounts in process memory; used by tests and the
// database-less server mode.
type MemAccountRepo struct {
	mu     sync.RWMutex
	byFold map[string]*memAccount
	nextID int32
}

type memAccount struct {
	acc  Account
	hash string
}

func NewMemAccountRepo() *MemAccountRepo {
	return &MemAccountRepo{byFold: make(map[string]*memAccount), nextID: 1}
}

func (r *MemAccountRepo) Create(_ context.Context, username, password, email string) (*Account, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fold := nameFolder.String(username)
	if _, ok := r.byFold[fold]; ok {
		return nil, ErrAccountExists
	}
	acc := Account{ID: r.nextID, Username: username, Email: email}
	r.nextID++
	r.byFold[fold] = &memAccount{acc: acc, hash: hash}
	return &acc, nil
}

func (r *MemAccountRepo) Authenticate(_ context.Context, username, password string) (*Account, error) {
	r.mu.RLock()
	m := r.byFold[nameFolder.String(username)]
	r.mu.RUnlock()
	if m == nil {
		return nil, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(m.hash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	acc := m.acc
	return &acc, nil
}

func (r *MemAccountRepo) Exists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byFold[nameFolder.String(username)]
	return ok, nil
}

var _ AccountRepo = (*MemAccountRepo)(nil)
