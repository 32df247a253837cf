// Package credentials is the Postgres implementation of the authentication
// store: bcrypt password hashes keyed by uname, and opaque session keys with
// a last-used sliding window.
package credentials

import (
	"context"
	"database/sql"
	"embed"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/registry"
	"github.com/d2718/camp-demo/storage/database"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements registry.CredentialsStore over Postgres.
type Store struct {
	db  *sqlx.DB
	cfg *core.Config
	log core.Logger
}

var _ registry.CredentialsStore = (*Store)(nil)

func NewStore(db *sqlx.DB, cfg *core.Config, log core.Logger) *Store {
	return &Store{db: db, cfg: cfg, log: log}
}

// Open connects to the credentials database and waits for it to respond.
func Open(cfg *core.Config, log core.Logger) (*Store, error) {
	db, err := database.Open(cfg.CredentialsDB)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(db); err != nil {
		return nil, err
	}
	return NewStore(db, cfg, log), nil
}

func (s *Store) Close() error { return s.db.Close() }

// Migrate brings the credentials schema up to date.
func (s *Store) Migrate() error {
	return database.Migrate(s.db, migrations)
}

// hash runs bcrypt over password+salt. The salt lives in the academic store,
// so neither database alone holds what a login check needs.
func hash(password, salt string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password+salt), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hashing password")
	}
	return string(h), nil
}

func (s *Store) CheckPassword(ctx context.Context, uname, password, salt string) (registry.AuthResult, error) {
	var stored string
	err := s.db.GetContext(ctx, &stored, `SELECT hash FROM users WHERE uname = $1`, uname)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.AuthNoSuchUser, nil
	}
	if err != nil {
		return registry.AuthBadPassword, errors.Wrapf(err, "selecting credentials for %q", uname)
	}

	err = bcrypt.CompareHashAndPassword([]byte(stored), []byte(password+salt))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return registry.AuthBadPassword, nil
	}
	if err != nil {
		return registry.AuthBadPassword, errors.Wrapf(err, "checking password for %q", uname)
	}
	return registry.AuthOK, nil
}

func (s *Store) SetPassword(ctx context.Context, uname, password, salt string) error {
	h, err := hash(password, salt)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET hash = $2 WHERE uname = $1`, uname, h)
	if err != nil {
		return errors.Wrapf(err, "setting password for %q", uname)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Errorf("no credentials for uname %q", uname)
	}
	return nil
}

func (s *Store) IssueKey(ctx context.Context, uname string) (string, error) {
	key := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO keys (key, uname, last_used) VALUES ($1, $2, now())`, key, uname)
	if err != nil {
		return "", errors.Wrapf(err, "issuing key for %q", uname)
	}
	return key, nil
}

// CheckKey reports whether the key is live for the uname, refreshing its
// last-used time on success.
func (s *Store) CheckKey(ctx context.Context, uname, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE keys SET last_used = now() WHERE key = $1 AND uname = $2 AND last_used > now() - make_interval(secs => $3)`,
		key, uname, s.cfg.KeyTTL.Seconds())
	if err != nil {
		return false, errors.Wrapf(err, "checking key for %q", uname)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CullOldKeys drops keys idle past the configured TTL, returning the count.
func (s *Store) CullOldKeys(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM keys WHERE last_used <= now() - make_interval(secs => $1)`, s.cfg.KeyTTL.Seconds())
	if err != nil {
		return 0, errors.Wrap(err, "culling old keys")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) Begin(ctx context.Context) (registry.CredentialsTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning credentials transaction")
	}
	return &Tx{tx: tx}, nil
}

// Tx mirrors staged academic-store user writes.
type Tx struct {
	tx *sqlx.Tx
}

var _ registry.CredentialsTx = (*Tx)(nil)

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

func (t *Tx) AddUsers(ctx context.Context, creds []registry.Credential) error {
	for _, c := range creds {
		h, err := hash(c.Password, c.Salt)
		if err != nil {
			return err
		}
		if _, err = t.tx.ExecContext(ctx,
			`INSERT INTO users (uname, hash) VALUES ($1, $2)`, c.Uname, h); err != nil {
			return errors.Wrapf(err, "adding credentials for %q", c.Uname)
		}
	}
	return nil
}

func (t *Tx) DeleteUsers(ctx context.Context, unames []string) (int, error) {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM users WHERE uname = ANY ($1)`, pq.Array(unames))
	if err != nil {
		return 0, errors.Wrap(err, "deleting credentials")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
