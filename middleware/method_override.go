package middleware

import (
	"mime"
	"net/http"
	"strings"
)

// MethodOverride lets HTML forms reach PATCH and DELETE routes. The verb comes
// from the X-HTTP-Method-Override header, a _method query parameter, or a
// _method field of a urlencoded form. Multipart bodies are never parsed here,
// so uploads are only read once a route has accepted the request.
// It must wrap the router since gin matches routes before running middleware.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			switch method := strings.ToUpper(overrideMethod(r)); method {
			case http.MethodPatch, http.MethodPut, http.MethodDelete:
				r.Method = method
			}
		}
		next.ServeHTTP(w, r)
	})
}

func overrideMethod(r *http.Request) string {
	if method := r.Header.Get("X-HTTP-Method-Override"); method != "" {
		return method
	}
	if method := r.URL.Query().Get("_method"); method != "" {
		return method
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" {
		return r.PostFormValue("_method")
	}
	return ""
}

// LimitBody caps how much of any request body handlers may read
func LimitBody(limit int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}
