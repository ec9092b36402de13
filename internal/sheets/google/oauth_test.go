package google

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

const testOAuthClient = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func TestOAuthConfig(t *testing.T) {
	if _, err := OAuthConfig([]byte("invalid-json")); err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Fatalf("expected oauth config error, got %v", err)
	}

	cfg, err := OAuthConfig([]byte(testOAuthClient))
	if err != nil {
		t.Fatalf("OAuthConfig: %v", err)
	}
	if cfg.ClientID != "test" || len(cfg.Scopes) != 1 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestOAuthOption(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing token",
			cfg:     Config{OAuthClientJSON: testOAuthClient},
			wantErr: "missing oauth token",
		},
		{
			name:    "token without credentials",
			cfg:     Config{OAuthClientJSON: testOAuthClient, OAuthTokenJSON: `{"token_type":"Bearer"}`},
			wantErr: "neither access nor refresh token",
		},
		{
			name:    "malformed token",
			cfg:     Config{OAuthClientJSON: testOAuthClient, OAuthTokenJSON: `{`},
			wantErr: "decode oauth token",
		},
		{
			name:    "unreadable client file",
			cfg:     Config{OAuthClientFile: filepath.Join(os.TempDir(), "does-not-exist", "client.json")},
			wantErr: "read oauth client file",
		},
		{
			name: "valid",
			cfg:  Config{OAuthClientJSON: testOAuthClient, OAuthTokenJSON: `{"access_token":"test","token_type":"Bearer"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := oauthOption(context.Background(), tt.cfg)
			if tt.wantErr == "" {
				if err != nil || opt == nil {
					t.Fatalf("oauthOption: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewWithOAuth(t *testing.T) {
	c, err := New(context.Background(), Config{
		SpreadsheetID:   "sheet-id",
		OAuthClientJSON: testOAuthClient,
		OAuthTokenJSON:  `{"access_token":"test","refresh_token":"r","token_type":"Bearer"}`,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.svc == nil || c.tabPrefix != defaultTabPrefix {
		t.Fatalf("unexpected client %+v", c)
	}
}

func TestSaveToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := SaveToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %v, want 0600", perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		t.Fatalf("decode saved token: %v", err)
	}
	if tok.RefreshToken != "r" {
		t.Fatalf("saved token = %+v", tok)
	}

	// A saved token is accepted by the client configuration.
	if _, err := oauthOption(context.Background(), Config{OAuthClientJSON: testOAuthClient, OAuthTokenFile: path}); err != nil {
		t.Fatalf("oauthOption from saved file: %v", err)
	}
}
