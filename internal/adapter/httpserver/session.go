package httpserver

import (
	"fmt"
	"net"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/kizilabs/chat-gateway/internal/domain"
)

// sessionHeader carries the client-chosen session identity. Rate limiting and
// behavior scoring key on it.
const sessionHeader = "X-Session-Id"

var sessionIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

// sessionIdentity resolves the client identity for this request. A valid
// X-Session-Id header wins; without one the remote IP is used so anonymous
// clients still share one window per host. A fresh UUID is echoed back so the
// client can adopt a stable identity on its next request.
func sessionIdentity(w http.ResponseWriter, r *http.Request) (string, error) {
	if sid := r.Header.Get(sessionHeader); sid != "" {
		if !sessionIDRe.MatchString(sid) {
			return "", fmt.Errorf("%w: invalid session id", domain.ErrInvalidArgument)
		}
		w.Header().Set(sessionHeader, sid)
		return sid, nil
	}
	w.Header().Set(sessionHeader, uuid.NewString())
	return clientIP(r), nil
}

// clientIP strips the port from RemoteAddr, falling back to the raw value for
// addresses without one.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
