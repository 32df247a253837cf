package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/d2718/camp-demo/core/registry"
)

// CredentialsStore is the in-memory authentication store. Passwords are kept
// in the clear; it exists to exercise the registry, not to be secure.
type CredentialsStore struct {
	mu  sync.Mutex
	ttl time.Duration

	Creds map[string]registry.Credential
	Keys  map[string]KeyRecord

	// FailAddUsers makes the next AddUsers call fail.
	FailAddUsers bool
	// FailCommit makes the next transaction's Commit fail.
	FailCommit bool
}

type KeyRecord struct {
	Uname    string
	LastUsed time.Time
}

var _ registry.CredentialsStore = (*CredentialsStore)(nil)

func NewCredentialsStore(ttl time.Duration) *CredentialsStore {
	return &CredentialsStore{
		ttl:   ttl,
		Creds: make(map[string]registry.Credential),
		Keys:  make(map[string]KeyRecord),
	}
}

func (s *CredentialsStore) CheckPassword(_ context.Context, uname, password, salt string) (registry.AuthResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Creds[uname]
	if !ok {
		return registry.AuthNoSuchUser, nil
	}
	if c.Password != password || c.Salt != salt {
		return registry.AuthBadPassword, nil
	}
	return registry.AuthOK, nil
}

func (s *CredentialsStore) SetPassword(_ context.Context, uname, password, salt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Creds[uname]; !ok {
		return errors.Errorf("no credentials for uname %q", uname)
	}
	s.Creds[uname] = registry.Credential{Uname: uname, Password: password, Salt: salt}
	return nil
}

func (s *CredentialsStore) IssueKey(_ context.Context, uname string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := uuid.NewString()
	s.Keys[key] = KeyRecord{Uname: uname, LastUsed: time.Now()}
	return key, nil
}

func (s *CredentialsStore) CheckKey(_ context.Context, uname, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.Keys[key]
	if !ok || rec.Uname != uname || time.Since(rec.LastUsed) > s.ttl {
		return false, nil
	}
	rec.LastUsed = time.Now()
	s.Keys[key] = rec
	return true, nil
}

func (s *CredentialsStore) CullOldKeys(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for key, rec := range s.Keys {
		if time.Since(rec.LastUsed) > s.ttl {
			delete(s.Keys, key)
			n++
		}
	}
	return n, nil
}

type credentialsTx struct {
	store *CredentialsStore
	creds map[string]registry.Credential
	done  bool
}

var _ registry.CredentialsTx = (*credentialsTx)(nil)

func (s *CredentialsStore) Begin(_ context.Context) (registry.CredentialsTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &credentialsTx{
		store: s,
		creds: make(map[string]registry.Credential, len(s.Creds)),
	}
	for k, v := range s.Creds {
		tx.creds[k] = v
	}
	return tx, nil
}

func (t *credentialsTx) Commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	if t.store.FailCommit {
		t.store.FailCommit = false
		return errors.New("injected commit failure")
	}
	t.store.Creds = t.creds
	return nil
}

func (t *credentialsTx) Rollback() error {
	t.done = true
	return nil
}

func (t *credentialsTx) AddUsers(_ context.Context, creds []registry.Credential) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.FailAddUsers {
		t.store.FailAddUsers = false
		return errors.New("injected add failure")
	}
	for _, c := range creds {
		if _, ok := t.creds[c.Uname]; ok {
			return errors.Errorf("credentials for %q already exist", c.Uname)
		}
		t.creds[c.Uname] = c
	}
	return nil
}

func (t *credentialsTx) DeleteUsers(_ context.Context, unames []string) (int, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	var n int
	for _, uname := range unames {
		if _, ok := t.creds[uname]; ok {
			delete(t.creds, uname)
			n++
		}
	}
	return n, nil
}
