package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/model"
)

// UserFinder resolves a user ID to a live account. Satisfied by
// repository.UserRepository.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Verifier turns a bearer credential into a principal. Token parsing is
// stateless; the resolved principal is then re-checked for continued
// existence so a deleted account cannot keep using an unexpired token.
type Verifier struct {
	tokens  *TokenManager
	users   UserFinder
	timeout time.Duration
}

// NewVerifier creates a Verifier. timeout bounds the principal lookup; a
// lookup that exceeds it fails closed.
func NewVerifier(tokens *TokenManager, users UserFinder, timeout time.Duration) *Verifier {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Verifier{tokens: tokens, users: users, timeout: timeout}
}

// Verify validates the credential and resolves it to a principal. Returns
// ErrTokenMissing, ErrTokenExpired, or ErrTokenInvalid on failure; a lookup
// timeout or a missing account both report ErrTokenInvalid rather than
// leaking which one happened.
func (v *Verifier) Verify(ctx context.Context, credential string) (*model.User, error) {
	userID, err := v.tokens.Parse(credential)
	if err != nil {
		return nil, err
	}

	lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	user, err := v.users.FindByID(lookupCtx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenInvalid
		}
		// Store errors and deadline overruns fail closed.
		return nil, ErrTokenInvalid
	}
	return user, nil
}
