package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestShortenPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}

	got := ShortenPath(filepath.Join(home, "deploys", "forum"))
	want := filepath.Join("~", "deploys", "forum")
	if got != want {
		t.Errorf("ShortenPath = %q, want %q", got, want)
	}

	// Paths outside home pass through unchanged.
	if got := ShortenPath("/var/lib/warden"); got != "/var/lib/warden" {
		t.Errorf("ShortenPath(/var/lib/warden) = %q", got)
	}
}

func TestFormatTimeAgo(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "never"},
		{"seconds", time.Now().Add(-30 * time.Second), "just now"},
		{"one minute", time.Now().Add(-90 * time.Second), "1 minute ago"},
		{"minutes", time.Now().Add(-5 * time.Minute), "5 minutes ago"},
		{"one hour", time.Now().Add(-90 * time.Minute), "1 hour ago"},
		{"hours", time.Now().Add(-3 * time.Hour), "3 hours ago"},
		{"days", time.Now().Add(-49 * time.Hour), "2 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTimeAgo(tt.t); got != tt.want {
				t.Errorf("FormatTimeAgo = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatTimeAgo_OldDate(t *testing.T) {
	old := time.Date(2023, time.March, 14, 0, 0, 0, 0, time.UTC)
	got := FormatTimeAgo(old)
	if !strings.Contains(got, "2023") {
		t.Errorf("FormatTimeAgo for old dates should fall back to a date, got %q", got)
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "-"},
		{"recent", time.Now().Add(-10 * time.Second), "just now"},
		{"minutes", time.Now().Add(-7 * time.Minute), "7m ago"},
		{"hours", time.Now().Add(-2 * time.Hour), "2h ago"},
		{"days", time.Now().Add(-3 * 24 * time.Hour), "3d ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatAge(tt.t); got != tt.want {
				t.Errorf("FormatAge = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatLatency(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Microsecond, "0.25ms"},
		{42 * time.Millisecond, "42ms"},
		{1500 * time.Millisecond, "1.50s"},
	}

	for _, tt := range tests {
		if got := FormatLatency(tt.d); got != tt.want {
			t.Errorf("FormatLatency(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
