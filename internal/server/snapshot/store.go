// Package snapshot holds the in-memory materialized view of the two entity
// streams. The store is the only queryable state in the system: reads never
// touch the log, and the log is never consulted again once a record has been
// applied here.
//
// Ownership discipline: the materializer is the sole writer. Every other
// component sees the store through the read methods only.
package snapshot

import (
	"sync"

	"github.com/dmitrijs2005/kodbank/internal/common"
	"github.com/dmitrijs2005/kodbank/internal/server/models"
)

// Store maps account uid -> account record and token value -> token record.
// Each apply is atomic with respect to readers: a reader observes a record
// either fully applied or not at all, never torn.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	tokens   map[string]models.Token
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]models.Account),
		tokens:   make(map[string]models.Token),
	}
}

// ApplyAccount inserts or replaces the record for its uid wholesale.
// Last write by log order wins; there are no merge semantics, which is what
// makes replaying the same record twice a no-op.
func (s *Store) ApplyAccount(a *models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.UID] = *a
}

// ApplyToken inserts or replaces the record for its token value.
func (s *Store) ApplyToken(t *models.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[t.Token] = *t
}

// DeleteToken removes the entry for the token value. Deleting an absent
// token is a no-op, so tombstones are safe to replay.
func (s *Store) DeleteToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// FindAccountByID returns the account with the given uid, or
// common.ErrorNotFound.
func (s *Store) FindAccountByID(uid string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[uid]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

// FindAccountByUsername scans for the account with the given username.
// A linear scan mirrors the store's contract: exact-key lookup on uid is
// the only index, usernames are not indexed.
func (s *Store) FindAccountByUsername(username string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Username == username {
			a := a
			return &a, nil
		}
	}
	return nil, common.ErrorNotFound
}

// FindTokenByValue returns the live token record for the given token string,
// or common.ErrorNotFound.
func (s *Store) FindTokenByValue(token string) (*models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}
