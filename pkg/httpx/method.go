package httpx

import (
	"mime"
	"net/http"
	"strings"
)

// MethodOverrideField is the form field HTML forms use to tunnel verbs they
// cannot send natively.
const MethodOverrideField = "_method"

// MethodOverride rewrites POST requests carrying a _method form field of
// PUT, PATCH or DELETE to that method. Other values are ignored.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && isFormBody(r) {
			if err := parseForm(r); err == nil {
				switch m := strings.ToUpper(r.PostForm.Get(MethodOverrideField)); m {
				case http.MethodPut, http.MethodPatch, http.MethodDelete:
					r.Method = m
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// StripTrailingSlash makes "/tasks/" and "/tasks" the same route. The root
// path is left alone.
func StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
			r.URL.Path = strings.TrimRight(p, "/")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}

// MaxFormMemory bounds multipart form parsing.
const MaxFormMemory = 1 << 20

func isFormBody(r *http.Request) bool {
	ct := mediaType(r)
	return ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
}

func parseForm(r *http.Request) error {
	if mediaType(r) == "multipart/form-data" {
		return r.ParseMultipartForm(MaxFormMemory)
	}
	return r.ParseForm()
}

func mediaType(r *http.Request) string {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return ct
}
