package middleware

import (
	"crypto/subtle"
	"net"
	"net/http"
)

// InternalOnly admits callers whose socket address is loopback or private, or
// any caller presenting X-Internal-Secret equal to secret (when secret is set).
// Do not mount it behind chi's RealIP: forwarding headers are client-controlled.
func InternalOnly(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Internal-Secret")), []byte(secret)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			if isPrivateIP(clientIP(r)) {
				next.ServeHTTP(w, r)
				return
			}
			writeJSONError(w, http.StatusForbidden, "forbidden", "forbidden")
		})
	}
}

func isPrivateIP(s string) bool {
	ip := net.ParseIP(s)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}
