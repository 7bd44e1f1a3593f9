// Package gateway is the single write path into the system: it turns write
// intents into events on the log. It never mutates the snapshot; it only
// reads it to validate intents, and a successful return means the event is
// durably queued, not yet visible.
//
// Validation runs against the current snapshot, which may be stale by the
// time the event lands. Two concurrent registrations for the same username
// can therefore both pass validation and both reach the log; the
// materializer applies them last-write-wins. This time-of-check/time-of-use
// gap is an accepted trade-off of putting the log between check and apply.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/kodbank/internal/common"
	"github.com/dmitrijs2005/kodbank/internal/server/event"
	"github.com/dmitrijs2005/kodbank/internal/server/models"
	"github.com/dmitrijs2005/kodbank/internal/server/snapshot"
	"github.com/dmitrijs2005/kodbank/internal/server/stream"
)

// View is the read access the gateway needs for intent validation.
type View interface {
	FindAccountByID(uid string) (*models.Account, error)
	FindAccountByUsername(username string) (*models.Account, error)
	FindTokenByValue(token string) (*models.Token, error)
}

var _ View = (*snapshot.Store)(nil)

// RegisterAccount is the intent to create a new account. CredentialHash is
// already prepared by the caller; the gateway never sees plaintext
// credentials.
type RegisterAccount struct {
	UID            string
	Username       string
	CredentialHash string
	Email          string
	Phone          string
	Role           string
	Balance        float64
}

// IssueToken is the intent to record a freshly signed session token.
type IssueToken struct {
	Token      string
	UID        string
	ExpiresAt  time.Time
	SequenceID int64
}

type Gateway struct {
	pub           stream.Publisher
	view          View
	accountsTopic string
	tokensTopic   string
}

func New(pub stream.Publisher, view View, accountsTopic, tokensTopic string) *Gateway {
	return &Gateway{
		pub:           pub,
		view:          view,
		accountsTopic: accountsTopic,
		tokensTopic:   tokensTopic,
	}
}

// RegisterAccount validates the intent shape and uniqueness against the
// current snapshot, then appends the register event. Returns once the
// publish is acknowledged.
func (g *Gateway) RegisterAccount(ctx context.Context, intent RegisterAccount) error {
	if intent.UID == "" || intent.Username == "" || intent.CredentialHash == "" {
		return fmt.Errorf("%w: uid, username and credential hash are required", common.ErrorValidation)
	}

	if _, err := g.view.FindAccountByUsername(intent.Username); err == nil {
		return common.ErrorAccountExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	if _, err := g.view.FindAccountByID(intent.UID); err == nil {
		return common.ErrorAccountExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	rec := &models.Account{
		UID:            intent.UID,
		Username:       intent.Username,
		CredentialHash: intent.CredentialHash,
		Email:          intent.Email,
		Phone:          intent.Phone,
		Role:           intent.Role,
		Balance:        intent.Balance,
	}
	b, err := event.EncodeAccount(rec)
	if err != nil {
		return err
	}

	return g.pub.Publish(ctx, g.accountsTopic, []byte(intent.UID), b)
}

// IssueToken appends a token-created event. The token value and expiry come
// prepared from the auth layer.
func (g *Gateway) IssueToken(ctx context.Context, intent IssueToken) error {
	if intent.Token == "" || intent.UID == "" {
		return fmt.Errorf("%w: token and uid are required", common.ErrorValidation)
	}
	if _, err := g.view.FindAccountByID(intent.UID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: unknown account %s", common.ErrorValidation, intent.UID)
		}
		return err
	}

	rec := &models.Token{
		Token:      intent.Token,
		UID:        intent.UID,
		Expairy:    intent.ExpiresAt.UTC().Format(models.ExpairyFormat),
		SequenceID: intent.SequenceID,
	}
	b, err := event.EncodeToken(rec)
	if err != nil {
		return err
	}

	return g.pub.Publish(ctx, g.tokensTopic, []byte(intent.Token), b)
}

// RevokeToken appends a tombstone for the token. Revoking a token that is
// not (or no longer) in the snapshot is not an error: the tombstone is a
// no-op at apply time.
func (g *Gateway) RevokeToken(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: token is required", common.ErrorValidation)
	}

	rec := &models.Token{Token: token, Action: models.TokenActionDelete}
	b, err := event.EncodeToken(rec)
	if err != nil {
		return err
	}

	return g.pub.Publish(ctx, g.tokensTopic, []byte(token), b)
}
