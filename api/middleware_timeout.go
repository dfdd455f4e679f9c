package api

import (
	"net/http"
	"time"
)

const timeoutBody = `{"Response":{"Message":"Request timeout","Error":"the request took too long to process"}}`

// TimeoutMiddleware bounds JSON API requests. It must not wrap the
// websocket routes, since the timeout writer cannot be hijacked.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
