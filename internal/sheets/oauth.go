package sheets

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/adpilot/internal/config"
	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
	"github.com/adpilot/pkg/logger"
)

const tokenProvider = "google"

// Manager handles the Google OAuth 2.0 flow for spreadsheet access.
// Tokens persist in the repository and are refreshed on demand, so one
// interactive login survives restarts.
type Manager struct {
	config *oauth2.Config
	repo   storage.Repository
	log    *logger.Logger

	mu           sync.RWMutex
	currentToken *models.OAuthToken
}

// NewManager creates an OAuth manager for the spreadsheet scope
func NewManager(cfg config.SheetsConfig, repo storage.Repository, log *logger.Logger) *Manager {
	return &Manager{
		config: &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURI,
			Scopes:       []string{"https://www.googleapis.com/auth/spreadsheets"},
			Endpoint:     google.Endpoint,
		},
		repo: repo,
		log:  log.WithComponent("oauth"),
	}
}

// GenerateState creates a random state for OAuth CSRF protection
func GenerateState() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// AuthURL returns the consent-screen URL for the given state
func (m *Manager) AuthURL(state string) string {
	// Offline access so Google issues a refresh token
	return m.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades the authorization code for tokens and stores them
func (m *Manager) ExchangeCode(ctx context.Context, code string) (*models.OAuthToken, error) {
	token, err := m.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	stored := &models.OAuthToken{
		Provider:     tokenProvider,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
	}

	m.mu.Lock()
	m.currentToken = stored
	m.mu.Unlock()

	if err := m.repo.SaveToken(ctx, stored); err != nil {
		m.log.Warn().Err(err).Msg("Failed to persist token, keeping it in memory only")
	}

	m.log.Info().Time("expires_at", token.Expiry).Msg("Google token saved")
	return stored, nil
}

// Token returns a valid access token, refreshing it when it is about to
// expire
func (m *Manager) Token(ctx context.Context) (*models.OAuthToken, error) {
	m.mu.RLock()
	token := m.currentToken
	m.mu.RUnlock()

	if token == nil {
		stored, err := m.repo.GetToken(ctx, tokenProvider)
		if err != nil {
			return nil, fmt.Errorf("no Google token found, run the sheets login flow first: %w", err)
		}
		m.mu.Lock()
		m.currentToken = stored
		m.mu.Unlock()
		token = stored
	}

	if token.NeedsRefresh() {
		return m.refresh(ctx, token)
	}
	return token, nil
}

func (m *Manager) refresh(ctx context.Context, token *models.OAuthToken) (*models.OAuthToken, error) {
	if token.RefreshToken == "" {
		return nil, fmt.Errorf("token expired and no refresh token available, re-run the login flow")
	}

	source := m.config.TokenSource(ctx, token.ToOAuth2Token())
	fresh, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	token.FromOAuth2Token(fresh)

	m.mu.Lock()
	m.currentToken = token
	m.mu.Unlock()

	if err := m.repo.SaveToken(ctx, token); err != nil {
		m.log.Warn().Err(err).Msg("Failed to persist refreshed token")
	}

	m.log.Info().Time("expires_at", fresh.Expiry).Msg("Google token refreshed")
	return token, nil
}

// TokenSource adapts the manager into an oauth2.TokenSource for the
// sheets client
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerSource{ctx: ctx, manager: m}
}

type managerSource struct {
	ctx     context.Context
	manager *Manager
}

func (s *managerSource) Token() (*oauth2.Token, error) {
	token, err := s.manager.Token(s.ctx)
	if err != nil {
		return nil, err
	}
	return token.ToOAuth2Token(), nil
}

// Authenticated reports whether a usable token exists
func (m *Manager) Authenticated(ctx context.Context) bool {
	token, err := m.Token(ctx)
	return err == nil && token != nil && !token.IsExpired()
}

// Status returns whether the stored token is valid and when it expires
func (m *Manager) Status(ctx context.Context) (bool, time.Time, error) {
	m.mu.RLock()
	token := m.currentToken
	m.mu.RUnlock()

	if token == nil {
		stored, err := m.repo.GetToken(ctx, tokenProvider)
		if err != nil {
			return false, time.Time{}, err
		}
		token = stored
	}
	return !token.IsExpired(), token.ExpiresAt, nil
}

// Login runs the loopback OAuth flow: start a temporary callback
// server, print the consent URL, wait for Google to redirect back, and
// exchange the code. Returns the URL the user must open.
func (m *Manager) Login(ctx context.Context, port int) (string, error) {
	state, err := GenerateState()
	if err != nil {
		return "", err
	}
	authURL := m.AuthURL(state)

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			errChan <- fmt.Errorf("state mismatch")
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}
		if errMsg := r.URL.Query().Get("error"); errMsg != "" {
			errChan <- fmt.Errorf("oauth error: %s - %s", errMsg, r.URL.Query().Get("error_description"))
			http.Error(w, errMsg, http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no code in callback")
			http.Error(w, "No code", http.StatusBadRequest)
			return
		}
		codeChan <- code

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `
			<html>
			<body style="font-family: sans-serif; text-align: center; padding: 50px;">
				<h1>Authorization successful</h1>
				<p>You can close this window and return to the terminal.</p>
			</body>
			</html>
		`)
	})

	server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	m.log.Info().
		Str("url", authURL).
		Int("port", port).
		Msg("Waiting for OAuth callback")

	select {
	case code := <-codeChan:
		server.Shutdown(ctx)
		_, err := m.ExchangeCode(ctx, code)
		return authURL, err
	case err := <-errChan:
		server.Shutdown(ctx)
		return authURL, err
	case <-ctx.Done():
		server.Shutdown(ctx)
		return authURL, ctx.Err()
	}
}
