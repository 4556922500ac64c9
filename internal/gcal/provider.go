package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/option"

	"github.com/omriShneor/calpal/internal/auth"
	"github.com/omriShneor/calpal/internal/calendar"
	"github.com/omriShneor/calpal/internal/database"
)

var _ calendar.Service = (*Client)(nil)

// UserStore resolves chat user ids (account emails) to stored users
type UserStore interface {
	GetUserByEmail(email string) (*database.User, error)
}

// TokenStore hands out refreshing token sources for stored credentials
type TokenStore interface {
	TokenSource(ctx context.Context, userID int64) (oauth2.TokenSource, error)
}

// Provider builds per-user calendar clients from stored OAuth credentials.
type Provider struct {
	users  UserStore
	tokens TokenStore
	loc    *time.Location
	opts   []option.ClientOption

	group singleflight.Group
}

// NewProvider creates a provider. Extra opts are applied to every client.
func NewProvider(users UserStore, tokens TokenStore, loc *time.Location, opts ...option.ClientOption) *Provider {
	return &Provider{users: users, tokens: tokens, loc: loc, opts: opts}
}

// ForUser returns the calendar of the user with the given email. Users without an
// account or without a stored token get calendar.ErrNotConnected. Concurrent
// requests for the same user share one construction.
func (p *Provider) ForUser(ctx context.Context, userID string) (calendar.Service, error) {
	v, err, _ := p.group.Do(userID, func() (interface{}, error) {
		return p.build(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Client), nil
}

func (p *Provider) build(ctx context.Context, email string) (*Client, error) {
	user, err := p.users.GetUserByEmail(email)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, calendar.ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	// The client outlives the request that built it
	base := context.WithoutCancel(ctx)

	ts, err := p.tokens.TokenSource(base, user.ID)
	if errors.Is(err, auth.ErrNoToken) {
		return nil, calendar.ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	opts := append([]option.ClientOption{option.WithHTTPClient(oauth2.NewClient(base, ts))}, p.opts...)
	return NewClient(base, p.loc, opts...)
}
