package tokenservice

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"oauthprompt/pkg/logging"
)

// Handler serves the OAuth callback endpoint.
type Handler struct {
	service *Service
}

// NewHandler creates a callback handler for service.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.HandleCallback(w, r)
}

// HandleCallback is called by the browser after the user authenticates with
// the provider.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")
	stateParam := query.Get("state")
	errorParam := query.Get("error")
	errorDesc := query.Get("error_description")

	if errorParam != "" {
		logging.Warn("TokenService", "OAuth callback received error: %s - %s", errorParam, errorDesc)
		if errorDesc == "" {
			errorDesc = errorParam
		}
		h.renderErrorPage(w, fmt.Sprintf("Sign-in failed: %s", errorDesc))
		return
	}

	if code == "" || stateParam == "" {
		logging.Warn("TokenService", "OAuth callback missing code or state parameter")
		h.renderErrorPage(w, "Invalid callback: missing required parameters")
		return
	}

	outcome, err := h.service.CompleteSignIn(r.Context(), stateParam, code)
	switch {
	case errors.Is(err, ErrInvalidState):
		h.renderErrorPage(w, "Sign-in session expired. Please start again from the chat.")
		return
	case err != nil:
		logging.Error("TokenService", err, "Failed to complete sign-in")
		h.renderErrorPage(w, "Failed to complete sign-in. Please try again.")
		return
	}

	h.renderSuccessPage(w, outcome)
}

// setSecurityHeaders sets recommended security headers for HTML responses.
func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
}

const pageStyle = `
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: #16213e;
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            color: #e8e8e8;
        }
        .container {
            text-align: center;
            padding: 3rem;
            background: rgba(255, 255, 255, 0.05);
            border-radius: 16px;
            max-width: 500px;
            margin: 1rem;
        }
        h1 { font-size: 1.75rem; font-weight: 600; color: #fff; }
        p { color: #a0a0a0; line-height: 1.6; margin-top: 1rem; }
        .code { font-family: monospace; font-size: 2.5rem; letter-spacing: 0.3em; color: #00d4aa; margin-top: 1rem; }
        .message { color: #ff6b6b; font-weight: 500; }
`

func writePage(w http.ResponseWriter, status int, title, body string) {
	setSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>%s</title>
    <style>%s</style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        %s
    </div>
</body>
</html>`, html.EscapeString(title), pageStyle, html.EscapeString(title), body)
}

// renderSuccessPage tells the user how to get back to the conversation.
func (h *Handler) renderSuccessPage(w http.ResponseWriter, outcome *SignInOutcome) {
	connection := html.EscapeString(outcome.ConnectionName)

	var body string
	if outcome.MagicCode != "" {
		body = fmt.Sprintf(`<p>You are signed in to %s.</p>
        <p>Type this code into the chat to finish:</p>
        <div class="code">%s</div>`, connection, html.EscapeString(outcome.MagicCode))
	} else {
		body = fmt.Sprintf(`<p>You are signed in to %s.</p>
        <p>You can close this window and return to the chat.</p>`, connection)
	}
	writePage(w, http.StatusOK, "Sign-in Successful", body)
}

// renderErrorPage renders an HTML page describing a failed sign-in.
func (h *Handler) renderErrorPage(w http.ResponseWriter, message string) {
	body := fmt.Sprintf(`<p class="message">%s</p>
        <p>Please return to the chat and try again.</p>`, html.EscapeString(message))
	writePage(w, http.StatusBadRequest, "Sign-in Failed", body)
}
