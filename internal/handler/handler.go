package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sekkot/portal/internal/service"
	"github.com/sekkot/portal/internal/ui"
	"github.com/sekkot/portal/internal/ui/components/toast"
	"github.com/sekkot/portal/internal/ui/pages"
)

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect sends the browser to target, as a full page load for htmx.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// failMessage is the toast text for a failed service call.
func failMessage(err error) string {
	var remoteErr *service.RemoteError
	if errors.As(err, &remoteErr) {
		return "Failed to " + remoteErr.Op
	}
	return "Something went wrong"
}

// toastError reports err without replacing the page. htmx only applies
// swaps for 2xx responses, so the toast goes out with 200.
func toastError(w http.ResponseWriter, r *http.Request, err error, attrs ...any) {
	slog.Error(failMessage(err), append([]any{"error", err, "path", r.URL.Path}, attrs...)...)
	w.Header().Set("HX-Reswap", "none")
	ui.RenderOOB(w, r, toast.Error(failMessage(err), "Please try again."), "beforeend:#toast-container")
}

// fail reports err as a toast for htmx requests and as an error page
// otherwise.
func fail(w http.ResponseWriter, r *http.Request, err error, attrs ...any) {
	if isHTMX(r) {
		toastError(w, r, err, attrs...)
		return
	}
	slog.Error(failMessage(err), append([]any{"error", err, "path", r.URL.Path}, attrs...)...)
	ui.RenderStatus(w, r, http.StatusInternalServerError, pages.Error(failMessage(err)+". Please try again."))
}

func notFound(w http.ResponseWriter, r *http.Request) {
	ui.RenderStatus(w, r, http.StatusNotFound, pages.NotFound())
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/dashboard"
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return "/dashboard"
	}
	return next
}
