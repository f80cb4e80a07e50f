package ui

import (
	"bytes"
	"os"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetWriter(&buf)
	t.Cleanup(func() { SetWriter(os.Stderr) })
	return &buf
}

func TestWarn(t *testing.T) {
	buf := capture(t)

	Warn("something happened")

	if got := buf.String(); got != "Warning: something happened\n" {
		t.Errorf("Warn output = %q, want %q", got, "Warning: something happened\n")
	}
}

func TestWarnf(t *testing.T) {
	buf := capture(t)

	Warnf("skipping %q: %s", "grafana", "no credentials")

	want := "Warning: skipping \"grafana\": no credentials\n"
	if got := buf.String(); got != want {
		t.Errorf("Warnf output = %q, want %q", got, want)
	}
}

func TestError(t *testing.T) {
	buf := capture(t)

	Error("something failed")

	if got := buf.String(); got != "Error: something failed\n" {
		t.Errorf("Error output = %q, want %q", got, "Error: something failed\n")
	}
}

func TestErrorf(t *testing.T) {
	buf := capture(t)

	Errorf("failed to connect: %s", "timeout")

	want := "Error: failed to connect: timeout\n"
	if got := buf.String(); got != want {
		t.Errorf("Errorf output = %q, want %q", got, want)
	}
}

func TestHint(t *testing.T) {
	buf := capture(t)

	Hint("did you run 'warden up'?")

	want := "  did you run 'warden up'?\n"
	if got := buf.String(); got != want {
		t.Errorf("Hint output = %q, want %q", got, want)
	}
}

func TestInfof(t *testing.T) {
	buf := capture(t)

	Infof("hint: use %s instead", "--force")

	want := "hint: use --force instead\n"
	if got := buf.String(); got != want {
		t.Errorf("Infof output = %q, want %q", got, want)
	}
}

func TestColorFunctions(t *testing.T) {
	SetColorEnabled(true)
	defer SetColorEnabled(false)

	tests := []struct {
		name string
		fn   func(string) string
		code string
	}{
		{"Bold", Bold, "1"},
		{"Dim", Dim, "2"},
		{"Green", Green, "32"},
		{"Red", Red, "31"},
		{"Yellow", Yellow, "33"},
		{"Cyan", Cyan, "36"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn("hello")
			want := "\033[" + tt.code + "mhello\033[0m"
			if got != want {
				t.Errorf("%s(\"hello\") = %q, want %q", tt.name, got, want)
			}

			SetColorEnabled(false)
			if got := tt.fn("hello"); got != "hello" {
				t.Errorf("%s(\"hello\") with color disabled = %q, want %q", tt.name, got, "hello")
			}
			SetColorEnabled(true)
		})
	}
}

func TestStatusTag(t *testing.T) {
	SetColorEnabled(false)

	if got := StatusTag(true); got != "✓" {
		t.Errorf("StatusTag(true) = %q, want ✓", got)
	}
	if got := StatusTag(false); got != "✗" {
		t.Errorf("StatusTag(false) = %q, want ✗", got)
	}
}

func TestTags(t *testing.T) {
	SetColorEnabled(true)
	defer SetColorEnabled(false)

	if got := OKTag(); got != "\033[32m✓\033[0m" {
		t.Errorf("OKTag() = %q, want green ✓", got)
	}
	if got := FailTag(); got != "\033[31m✗\033[0m" {
		t.Errorf("FailTag() = %q, want red ✗", got)
	}
	if got := WarnTag(); got != "\033[33m⚠\033[0m" {
		t.Errorf("WarnTag() = %q, want yellow ⚠", got)
	}
	if got := InfoTag(); got != "\033[36mℹ\033[0m" {
		t.Errorf("InfoTag() = %q, want cyan ℹ", got)
	}
}

func TestNO_COLOR(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	f, err := os.CreateTemp("", "ui-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if detectColor(f) {
		t.Error("detectColor should return false when NO_COLOR is set")
	}
}

func TestWarnColoredPrefix(t *testing.T) {
	buf := capture(t)
	SetColorEnabled(true)
	defer SetColorEnabled(false)

	Warn("test message")
	got := buf.String()
	want := "\033[33mWarning:\033[0m test message\n"
	if got != want {
		t.Errorf("Warn with color = %q, want %q", got, want)
	}
}
