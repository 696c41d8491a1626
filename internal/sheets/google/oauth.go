package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// Environment variables for user (installed app) credentials, an
// alternative to a service account.
const (
	EnvOAuthClientJSON = "GOOGLE_OAUTH_CLIENT_JSON"
	EnvOAuthClientFile = "GOOGLE_OAUTH_CLIENT_FILE"
	EnvOAuthTokenFile  = "GOOGLE_OAUTH_TOKEN_FILE"
)

// OAuthConfigFromEnv builds the OAuth client config for the Sheets scope
// from GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE.
func OAuthConfigFromEnv() (*oauth2.Config, error) {
	raw := strings.TrimSpace(os.Getenv(EnvOAuthClientJSON))
	var b []byte
	switch file := strings.TrimSpace(os.Getenv(EnvOAuthClientFile)); {
	case raw != "":
		b = []byte(raw)
	case file != "":
		var err error
		if b, err = os.ReadFile(file); err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
	default:
		return nil, fmt.Errorf("set %s or %s", EnvOAuthClientJSON, EnvOAuthClientFile)
	}
	cfg, err := googleoauth.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}
	return cfg, nil
}

func LoadToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("token file holds no access or refresh token")
	}
	return &tok, nil
}

// SaveToken writes tok to path, readable by the owner only.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}

// userTokenSource returns a refreshing token source from the saved user
// token, or nil when GOOGLE_OAUTH_TOKEN_FILE is unset.
func userTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	path := strings.TrimSpace(os.Getenv(EnvOAuthTokenFile))
	if path == "" {
		return nil, nil
	}
	cfg, err := OAuthConfigFromEnv()
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(path)
	if err != nil {
		return nil, err
	}
	return cfg.TokenSource(ctx, tok), nil
}
