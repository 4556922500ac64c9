package gcal

import (
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// OAuthScopes are requested at login: calendar access plus the profile needed to
// identify the user
var OAuthScopes = []string{
	calendar.CalendarScope,
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"openid",
}

// LoadOAuthConfig loads the OAuth2 client configuration. Inline JSON (useful for
// container deployments) wins over the credentials file.
func LoadOAuthConfig(credentialsFile, credentialsJSON, redirectURL string) (*oauth2.Config, error) {
	if credentialsJSON != "" {
		config, err := google.ConfigFromJSON([]byte(credentialsJSON), OAuthScopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse GOOGLE_CREDENTIALS_JSON: %w", err)
		}
		config.RedirectURL = redirectURL
		return config, nil
	}

	if credentialsFile == "" {
		return nil, fmt.Errorf("no credentials file found - please provide credentials.json or set GOOGLE_CREDENTIALS_JSON env var")
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(data, OAuthScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	config.RedirectURL = redirectURL
	return config, nil
}
