package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sekkot/portal/internal/config"
	"github.com/sekkot/portal/internal/ctxkeys"
	"github.com/sekkot/portal/internal/ui"
	"github.com/sekkot/portal/internal/ui/pages"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

const oauthStateCookie = "oauth_state"

// oauthProvider is one external sign-in option. email reads the verified
// address once the code has been exchanged.
type oauthProvider struct {
	name   string
	config *oauth2.Config
	email  func(ctx context.Context, client *http.Client) (string, error)
}

type OAuthHandler struct {
	auth      *AuthHandler
	providers map[string]*oauthProvider
}

// NewOAuthHandler registers the providers that have client credentials.
func NewOAuthHandler(auth *AuthHandler, cfg *config.Config) *OAuthHandler {
	h := &OAuthHandler{auth: auth, providers: make(map[string]*oauthProvider)}

	if cfg.GoogleClientID != "" {
		h.providers["google"] = &oauthProvider{
			name: "google",
			config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  cfg.AppURL + "/auth/google/callback",
				Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email"},
				Endpoint:     google.Endpoint,
			},
			email: googleEmail,
		}
	}

	if cfg.GitHubClientID != "" {
		h.providers["github"] = &oauthProvider{
			name: "github",
			config: &oauth2.Config{
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				RedirectURL:  cfg.AppURL + "/auth/github/callback",
				Scopes:       []string{"user:email"},
				Endpoint:     github.Endpoint,
			},
			email: githubEmail,
		}
	}

	return h
}

// Start redirects to the provider's consent screen.
func (h *OAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	p, ok := h.providers[r.PathValue("provider")]
	if !ok {
		notFound(w, r)
		return
	}

	state, err := generateOAuthState()
	if err != nil {
		fail(w, r, err)
		return
	}

	cfg := ctxkeys.Config(r.Context())
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg != nil && cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	http.Redirect(w, r, p.config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback exchanges the code, reads the email and signs the user in.
// Callback paths are literal per provider so they do not shadow the token
// links under /auth/.
func (h *OAuthHandler) Callback(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.callback(w, r, provider)
	}
}

func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request, provider string) {
	p, ok := h.providers[provider]
	if !ok {
		notFound(w, r)
		return
	}

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		slog.Warn("oauth state validation failed", "provider", p.name, "error", err)
		h.failed(w, r, "OAuth authentication failed. Please try again.")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("oauth callback missing code", "provider", p.name)
		h.failed(w, r, "OAuth authentication failed. Please try again.")
		return
	}

	token, err := p.config.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("oauth token exchange failed", "provider", p.name, "error", err)
		h.failed(w, r, "OAuth authentication failed. Please try again.")
		return
	}

	email, err := p.email(r.Context(), p.config.Client(r.Context(), token))
	if err != nil {
		slog.Error("failed to read oauth email", "provider", p.name, "error", err)
		h.failed(w, r, "Could not retrieve your email address. Please try another sign-in method.")
		return
	}

	sess, err := h.auth.store.SignInWithOAuth(r.Context(), email, p.name)
	if err != nil {
		slog.Error("oauth sign in failed", "provider", p.name, "error", err, "email", email)
		h.failed(w, r, userMessage(err))
		return
	}

	h.auth.startSession(w, r, sess, "/dashboard")
}

func (h *OAuthHandler) failed(w http.ResponseWriter, r *http.Request, msg string) {
	ui.Render(w, r, pages.Login(pages.AuthForm{Error: msg}))
}

func googleEmail(ctx context.Context, client *http.Client) (string, error) {
	var info struct {
		Email    string `json:"email"`
		Verified bool   `json:"verified_email"`
	}
	err := getJSON(ctx, client, "https://www.googleapis.com/oauth2/v2/userinfo", &info)
	if err != nil {
		return "", err
	}
	if info.Email == "" || !info.Verified {
		return "", errors.New("google account has no verified email")
	}
	return info.Email, nil
}

// githubEmail prefers the public profile email and falls back to the
// primary verified address, which private profiles only expose here.
func githubEmail(ctx context.Context, client *http.Client) (string, error) {
	var user struct {
		Email string `json:"email"`
	}
	err := getJSON(ctx, client, "https://api.github.com/user", &user)
	if err != nil {
		return "", err
	}
	if user.Email != "" {
		return user.Email, nil
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	err = getJSON(ctx, client, "https://api.github.com/user/emails", &emails)
	if err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", errors.New("github account has no primary verified email")
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func generateOAuthState() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
