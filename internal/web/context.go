package web

import (
	"context"
	"net/http"

	"github.com/MartinRitsberg/ParemInfo/internal/core"
)

// withOrigin tags the request context with the client IP and user agent
// so core operations log who started them.
func withOrigin(r *http.Request) context.Context {
	return core.ContextWithOrigin(r.Context(), core.Origin{
		Surface:   "http",
		IPAddress: clientIP(r), // Already processed by TrustedRealIP
		UserAgent: r.UserAgent(),
	})
}
