// Package auth provides Google OAuth2 authentication for the mailbox
// provider. Credentials and tokens live in a per-user directory holding
// credentials.json and token.json.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// ErrReconnectRequired indicates the mailbox connection is missing or its
// token can no longer be refreshed. Runs abort their remaining work with
// this reason rather than skipping silently.
var ErrReconnectRequired = errors.New("mailbox reconnect required")

// Scopes requested for ingestion. Read-only is all the pipeline needs.
var Scopes = []string{gm.GmailReadonlyScope}

// storedToken is the on-disk token.json format.
type storedToken struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri,omitempty"`
	ClientID     string   `json:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	Expiry       string   `json:"expiry,omitempty"`
}

// LoadService returns an authenticated Gmail API service using the
// credentials directory. A missing connection or failed refresh maps to
// ErrReconnectRequired.
func LoadService(ctx context.Context, credentialsDir string) (*gm.Service, error) {
	if credentialsDir == "" {
		return nil, fmt.Errorf("no credentials directory configured: %w", ErrReconnectRequired)
	}

	credPath := filepath.Join(credentialsDir, "credentials.json")
	data, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials from %s: %w", credPath, ErrReconnectRequired)
	}

	oauthCfg, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	tokenPath := filepath.Join(credentialsDir, "token.json")
	token, err := loadToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("load token from %s: %w", tokenPath, ErrReconnectRequired)
	}

	// The token source refreshes transparently; surface a refresh failure
	// as a reconnect condition since every later call would fail the same way.
	ts := oauthCfg.TokenSource(ctx, token)
	fresh, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %v: %w", err, ErrReconnectRequired)
	}
	if fresh.AccessToken != token.AccessToken {
		if saveErr := saveToken(tokenPath, fresh, oauthCfg); saveErr != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save refreshed token: %v\n", saveErr)
		}
	}

	return gm.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
}

func loadToken(tokenPath string) (*oauth2.Token, error) {
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, err
	}

	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	var expiry time.Time
	if st.Expiry != "" {
		for _, layout := range []string{
			"2006-01-02T15:04:05.999999Z",
			time.RFC3339,
			time.RFC3339Nano,
		} {
			if t, err := time.Parse(layout, st.Expiry); err == nil {
				expiry = t
				break
			}
		}
	}

	return &oauth2.Token{
		AccessToken:  st.Token,
		RefreshToken: st.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       expiry,
	}, nil
}

func saveToken(tokenPath string, token *oauth2.Token, cfg *oauth2.Config) error {
	st := storedToken{
		Token:        token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenURI:     cfg.Endpoint.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       Scopes,
		Expiry:       token.Expiry.UTC().Format("2006-01-02T15:04:05.999999Z"),
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tokenPath, data, 0o600)
}
