package persist

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrAccountExists   = errors.New("account already exists")
	ErrBadCredentials  = errors.New("bad credentials")
	ErrAccountNotFound = errors.New("account not found")
)

// Account is one login identity; the account id doubles as the user id.
type Account struct {
	ID       int32
	Username string
	Email    string
}

// AccountRepo stores login identities. Passwords are kept only as bcrypt
// hashes.
type AccountRepo interface {
	Create(ctx context.Context, username, password, email string) (*Account, error)
	// Authenticate resolves username (case-insensitive, Spanish folding)
	// and checks the password. Returns ErrBadCredentials on either miss so
	// callers cannot probe which usernames exist.
	Authenticate(ctx context.Context, username, password string) (*Account, error)
	Exists(ctx context.Context, username string) (bool, error)
}

var nameFolder = cases.Lower(language.Spanish)

func hashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// PGAccountRepo is the postgres implementation.
type PGAccountRepo struct {
	db *DB
}

func NewPGAccountRepo(db *DB) *PGAccountRepo {
	return &PGAccountRepo{db: db}
}

func (r *PGAccountRepo) Create(ctx context.Context, username, password, email string) (*Account, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	var id int32
	err = r.db.Pool.QueryRow(ctx,
		`INSERT INTO accounts (username, username_fold, password_hash, email)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (username_fold) DO NOTHING
		 RETURNING id`,
		username, nameFolder.String(username), hash, email,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountExists
	}
	if err != nil {
		return nil, err
	}
	return &Account{ID: id, Username: username, Email: email}, nil
}

func (r *PGAccountRepo) Authenticate(ctx context.Context, username, password string) (*Account, error) {
	var (
		acc  Account
		hash string
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash FROM accounts WHERE username_fold = $1`,
		nameFolder.String(username),
	).Scan(&acc.ID, &acc.Username, &acc.Email, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return &acc, nil
}

func (r *PGAccountRepo) Exists(ctx context.Context, username string) (bool, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM accounts WHERE username_fold = $1`,
		nameFolder.String(username),
	).Scan(&n)
	return n > 0, err
}

var _ AccountRepo = (*PGAccountRepo)(nil)
