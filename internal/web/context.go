package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/dispatch/internal/core"
)

// withSource records the client on ctx. RemoteAddr has already been
// rewritten by TrustedRealIP.
func withSource(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return core.WithSource(ctx, core.Source{IP: ip, UserAgent: r.UserAgent()})
}
