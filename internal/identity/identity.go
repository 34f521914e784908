// Package identity authenticates users and issues, restores and revokes
// their bearer credentials.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

const defaultDepartment = "General"

// Authenticator checks a username/password pair against active users.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
}

// Identity is the authenticated caller reconstructed from a credential.
type Identity struct {
	UserID     uint64     `json:"id"`
	Username   string     `json:"username"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       model.Role `json:"role"`
	Department string     `json:"department"`
	ExpiresAt  time.Time  `json:"expiresAt"`
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

type Manager struct {
	users   Authenticator
	codec   *Codec
	revoker Revoker
	store   CredentialStore
	log     *slog.Logger
}

type Deps struct {
	Users   Authenticator
	Codec   *Codec
	Revoker Revoker
	// Store is optional; the HTTP server leaves credentials to the client.
	Store  CredentialStore
	Logger *slog.Logger
}

func NewManager(d Deps) *Manager {
	if d.Revoker == nil {
		d.Revoker = NewMemoryRevoker(nil)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Manager{
		users:   d.Users,
		codec:   d.Codec,
		revoker: d.Revoker,
		store:   d.Store,
		log:     d.Logger.With("component", "identity"),
	}
}

// Login authenticates and issues a credential. Any failure is reported as
// errs.ErrInvalidCredentials.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := m.users.Authenticate(ctx, username, password)
	if err != nil {
		if !errors.Is(err, errs.ErrInvalidCredentials) {
			m.log.Warn("login lookup failed", "username", username, "error", err)
		}
		return nil, errs.ErrInvalidCredentials
	}
	return m.Issue(ctx, u)
}

// Issue mints a credential for an already authenticated user and saves it
// to the credential store when one is configured.
func (m *Manager) Issue(_ context.Context, u *model.User) (*Session, error) {
	token, exp, err := m.codec.Encode(u)
	if err != nil {
		return nil, err
	}
	if m.store != nil {
		if err := m.store.Save(token); err != nil {
			return nil, fmt.Errorf("save credential: %w", err)
		}
	}
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// Authenticate verifies token and returns the identity it carries.
func (m *Manager) Authenticate(ctx context.Context, token string) (*Identity, error) {
	claims, err := m.codec.Decode(token)
	if err != nil {
		return nil, err
	}
	revoked, err := m.revoker.IsRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("revocation check: %w", err)
	}
	if revoked {
		return nil, errs.ErrTokenRevoked
	}
	return identityFromClaims(claims), nil
}

// Restore reads the stored credential. Expired, malformed or revoked
// credentials are discarded and a nil identity is returned.
func (m *Manager) Restore(ctx context.Context) (*Identity, error) {
	if m.store == nil {
		return nil, nil
	}
	token, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}
	id, err := m.Authenticate(ctx, token)
	if err != nil {
		m.log.Info("discarding stored credential", "reason", err)
		if cerr := m.store.Clear(); cerr != nil {
			m.log.Warn("clear credential", "error", cerr)
		}
		return nil, nil
	}
	return id, nil
}

// Logout clears the stored credential and revokes token. Unknown or
// already expired tokens are not an error.
func (m *Manager) Logout(ctx context.Context, token string) error {
	var clearErr error
	if m.store != nil {
		if token == "" {
			token, _ = m.store.Load()
		}
		clearErr = m.store.Clear()
	}
	if token != "" {
		if claims, err := m.codec.Decode(token); err == nil && claims.ExpiresAt != nil {
			if err := m.revoker.Revoke(ctx, token, claims.ExpiresAt.Time); err != nil {
				return fmt.Errorf("revoke: %w", err)
			}
		}
	}
	return clearErr
}

func identityFromClaims(c *Claims) *Identity {
	id := &Identity{
		UserID:     c.UserID,
		Username:   c.Username,
		Name:       c.Name,
		Email:      c.Email,
		Role:       model.Role(c.Role),
		Department: c.Department,
	}
	if id.Name == "" {
		id.Name = id.Username
	}
	if id.Department == "" {
		id.Department = defaultDepartment
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}
