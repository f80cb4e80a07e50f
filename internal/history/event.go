package history

import "time"

// Kind identifies the kind of recorded operation.
type Kind string

const (
	KindProbe     Kind = "probe"
	KindUp        Kind = "up"
	KindDown      Kind = "down"
	KindRestart   Kind = "restart"
	KindReload    Kind = "reload"
	KindTestAlert Kind = "test-alert"
	KindBackup    Kind = "backup"
	KindRestore   Kind = "restore"
	KindPrune     Kind = "prune"
	KindLoadTest  Kind = "loadtest"
	KindGrant     Kind = "grant"
	KindRevoke    Kind = "revoke"
)

// Event is one recorded operation against the stack or the application.
type Event struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Kind      Kind      `json:"kind"`
	Target    string    `json:"target,omitempty"`
	OK        bool      `json:"ok"`
	LatencyMS int64     `json:"latency_ms,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}
