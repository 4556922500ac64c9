package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/omriShneor/calpal/internal/database"
)

// ErrNoToken is returned when a user has never granted calendar access
var ErrNoToken = errors.New("no google token stored for user")

// Service handles the Google login flow and the encrypted token store
type Service struct {
	db        *database.DB
	config    *oauth2.Config
	encryptor *Encryptor

	// extra options for Google API clients; tests point these at a local server
	apiOptions []option.ClientOption
}

// NewService creates a new authentication service
func NewService(db *database.DB, oauthConfig *oauth2.Config, encryptor *Encryptor) *Service {
	return &Service{
		db:        db,
		config:    oauthConfig,
		encryptor: encryptor,
	}
}

// GetAuthURL returns the Google consent URL. Offline access with forced consent
// makes Google hand out a refresh token every time.
func (s *Service) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCodeAndLogin exchanges an OAuth code for tokens, creates or updates the
// user from their Google profile, and stores the tokens encrypted.
func (s *Service) ExchangeCodeAndLogin(ctx context.Context, code string) (*database.User, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	info, err := s.getGoogleUserInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("google profile has no email")
	}

	user, err := s.db.UpsertGoogleUser(database.GoogleProfile{
		GoogleID:  info.Id,
		Email:     info.Email,
		Name:      info.Name,
		AvatarURL: info.Picture,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	if err := s.StoreGoogleToken(user.ID, token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	return user, nil
}

// getGoogleUserInfo fetches user profile from Google
func (s *Service) getGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*goauth2.Userinfo, error) {
	client := s.config.Client(ctx, token)
	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, s.apiOptions...)
	oauth2Service, err := goauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return oauth2Service.Userinfo.Get().Context(ctx).Do()
}

// StoreGoogleToken encrypts and stores a user's OAuth token
func (s *Service) StoreGoogleToken(userID int64, token *oauth2.Token) error {
	accessEncrypted, err := s.encryptor.Encrypt([]byte(token.AccessToken))
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	var refreshEncrypted []byte
	if token.RefreshToken != "" {
		refreshEncrypted, err = s.encryptor.Encrypt([]byte(token.RefreshToken))
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}

	var expiry *time.Time
	if !token.Expiry.IsZero() {
		e := token.Expiry.UTC()
		expiry = &e
	}

	return s.db.SaveGoogleToken(database.StoredToken{
		UserID:                userID,
		AccessTokenEncrypted:  accessEncrypted,
		RefreshTokenEncrypted: refreshEncrypted,
		TokenType:             token.TokenType,
		Expiry:                expiry,
		Scopes:                s.config.Scopes,
	})
}

// GetGoogleToken retrieves and decrypts the Google OAuth token for a user
func (s *Service) GetGoogleToken(userID int64) (*oauth2.Token, error) {
	stored, err := s.db.GetGoogleToken(userID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrNoToken
	}

	accessToken, err := s.encryptor.Decrypt(stored.AccessTokenEncrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	token := &oauth2.Token{
		AccessToken: string(accessToken),
		TokenType:   stored.TokenType,
	}
	if len(stored.RefreshTokenEncrypted) > 0 {
		refreshToken, err := s.encryptor.Decrypt(stored.RefreshTokenEncrypted)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
		}
		token.RefreshToken = string(refreshToken)
	}
	if stored.Expiry != nil {
		token.Expiry = *stored.Expiry
	}
	return token, nil
}

// TokenSource returns a token source for the user that refreshes through Google
// and writes every refreshed token back to the store.
func (s *Service) TokenSource(ctx context.Context, userID int64) (oauth2.TokenSource, error) {
	token, err := s.GetGoogleToken(userID)
	if err != nil {
		return nil, err
	}
	return &persistingTokenSource{
		base:   oauth2.ReuseTokenSource(token, s.config.TokenSource(ctx, token)),
		last:   token.AccessToken,
		userID: userID,
		save:   s.StoreGoogleToken,
	}, nil
}

// persistingTokenSource saves the token whenever the access token changes
type persistingTokenSource struct {
	base   oauth2.TokenSource
	userID int64
	save   func(int64, *oauth2.Token) error

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if token.AccessToken != p.last {
		if err := p.save(p.userID, token); err != nil {
			return nil, fmt.Errorf("failed to save refreshed token: %w", err)
		}
		p.last = token.AccessToken
	}
	return token, nil
}
