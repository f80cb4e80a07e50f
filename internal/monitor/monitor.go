// Package monitor talks to the monitoring stack's own APIs: Prometheus,
// AlertManager, and Grafana. Each service gets a small typed client that
// wraps the HTTP surface warden actually uses, not the full API.
package monitor

import (
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single request to a monitoring service.
const DefaultTimeout = 10 * time.Second

// readBody returns a trimmed excerpt of a response body for error messages.
func readBody(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return strings.TrimSpace(string(body))
}
