package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sekkot/portal/internal/authctx"
	"github.com/sekkot/portal/internal/ctxkeys"
	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/session"
	"github.com/sekkot/portal/internal/ui"
	"github.com/sekkot/portal/internal/ui/pages"
	"github.com/sekkot/portal/internal/validation"
)

type AuthHandler struct {
	provider *authctx.Provider
	store    *session.Store
}

func NewAuthHandler(provider *authctx.Provider, store *session.Store) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		store:    store,
	}
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.Login(pages.AuthForm{Next: r.URL.Query().Get("next")}))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	form := pages.AuthForm{
		Email: strings.TrimSpace(r.FormValue("email")),
		Next:  r.FormValue("next"),
	}
	password := r.FormValue("password")

	if form.Email == "" || password == "" {
		form.Error = "Email and password are required"
		ui.Render(w, r, pages.Login(form))
		return
	}

	sess, err := h.provider.SignIn(r.Context(), form.Email, password)
	if err != nil {
		slog.Warn("sign in failed", "error", err, "email", form.Email)
		form.Error = userMessage(err)
		ui.Render(w, r, pages.Login(form))
		return
	}

	h.store.SetCookies(w, sess)
	redirect(w, r, safeNext(form.Next))
}

func (h *AuthHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.Signup(pages.AuthForm{}))
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	form := pages.AuthForm{Email: strings.TrimSpace(r.FormValue("email"))}
	password := r.FormValue("password")

	if err := validation.ValidateEmail(form.Email); err != nil {
		form.Error = err.Error()
		ui.Render(w, r, pages.Signup(form))
		return
	}
	if err := validation.ValidatePassword(password); err != nil {
		form.Error = err.Error()
		ui.Render(w, r, pages.Signup(form))
		return
	}

	sess, err := h.provider.SignUp(r.Context(), form.Email, password)
	if err != nil {
		slog.Warn("sign up failed", "error", err, "email", form.Email)
		form.Error = userMessage(err)
		ui.Render(w, r, pages.Signup(form))
		return
	}

	if sess == nil {
		ui.Render(w, r, pages.CheckEmail(form.Email, "We sent a confirmation link to"))
		return
	}

	h.store.SetCookies(w, sess)
	redirect(w, r, "/dashboard")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := ctxkeys.Auth(r.Context()).Session

	err := h.provider.SignOut(r.Context(), sess)
	if err != nil {
		slog.Error("sign out failed", "error", err)
	}

	h.store.ClearCookies(w)
	redirect(w, r, "/")
}

func (h *AuthHandler) ForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.ForgotPassword(pages.AuthForm{}))
}

// ForgotPassword sends a reset link. The response is the same whether or
// not the address has an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	form := pages.AuthForm{Email: strings.TrimSpace(r.FormValue("email"))}

	if err := validation.ValidateEmail(form.Email); err != nil {
		form.Error = err.Error()
		ui.Render(w, r, pages.ForgotPassword(form))
		return
	}

	err := h.provider.ResetPassword(r.Context(), form.Email)
	if err != nil {
		slog.Warn("password reset request failed", "error", err, "email", form.Email)
	}

	ui.Render(w, r, pages.CheckEmail(form.Email, "If an account exists, we sent a password reset link to"))
}

func (h *AuthHandler) ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.ResetPassword(r.PathValue("token"), ""))
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	password := r.FormValue("password")

	if err := validation.ValidatePassword(password); err != nil {
		ui.Render(w, r, pages.ResetPassword(token, err.Error()))
		return
	}

	sess, err := h.store.CompletePasswordReset(r.Context(), token, password)
	if err != nil {
		slog.Warn("password reset failed", "error", err)
		ui.Render(w, r, pages.ResetPassword(token, linkMessage(err)))
		return
	}

	h.store.SetCookies(w, sess)
	redirect(w, r, "/dashboard")
}

func (h *AuthHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.ConfirmEmail(r.Context(), r.PathValue("token"))
	if err != nil {
		slog.Warn("email confirmation failed", "error", err)
		ui.Render(w, r, pages.Login(pages.AuthForm{Error: linkMessage(err)}))
		return
	}

	h.store.SetCookies(w, sess)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// startSession finishes any flow that produced a session.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, sess *model.Session, next string) {
	h.store.SetCookies(w, sess)
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

func userMessage(err error) string {
	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		return authErr.UserMessage()
	}
	return "Authentication failed"
}

func linkMessage(err error) string {
	var authErr *session.AuthError
	if errors.As(err, &authErr) && authErr.Kind != session.KindUnknown {
		return authErr.UserMessage()
	}
	return "Invalid or expired link. Please request a new one."
}
