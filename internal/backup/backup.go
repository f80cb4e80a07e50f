// Package backup archives the monitoring stack's configuration directory
// into tar.gz files with JSON metadata, and restores, prunes, and uploads
// those archives.
package backup

import "time"

// Kind records what triggered a backup.
type Kind string

const (
	// KindManual is an operator-requested backup.
	KindManual Kind = "manual"
	// KindSafety is taken automatically before a restore overwrites the
	// live configuration.
	KindSafety Kind = "safety"
)

func (k Kind) String() string {
	return string(k)
}

// Metadata describes one backup archive.
type Metadata struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Label     string    `json:"label,omitempty"`
	Source    string    `json:"source"`
	Archive   string    `json:"archive"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	S3Key     string    `json:"s3_key,omitempty"`
}
