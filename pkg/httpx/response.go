package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// HTMX request/response headers.
const (
	HeaderHXRequest  = "HX-Request"
	HeaderHXRedirect = "HX-Redirect"
	HeaderHXTrigger  = "HX-Trigger"
)

// WriteJSON writes v as JSON with the given status and no-cache headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// Every page carries a CSRF token or user data, so none of them may be cached.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get(HeaderHXRequest) == "true"
}

// WantsJSON reports whether the client asked for a JSON response instead of
// a redirect. htmx requests count, since they swap fragments in place.
func WantsJSON(r *http.Request) bool {
	if IsHTMX(r) {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// Redirect sends the client to url. htmx requests get an HX-Redirect header
// and a 200, which makes htmx perform a full page navigation.
func Redirect(w http.ResponseWriter, r *http.Request, url string) {
	if IsHTMX(r) {
		w.Header().Set(HeaderHXRedirect, url)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// Trigger sets an HX-Trigger header carrying a single event with payload.
func Trigger(w http.ResponseWriter, event string, payload any) {
	b, err := json.Marshal(map[string]any{event: payload})
	if err != nil {
		return
	}
	w.Header().Set(HeaderHXTrigger, string(b))
}
