//go:build windows

package keyring

import "os"

// lockFile on Windows is a no-op. Credential Manager is the primary backend
// there, and the file fallback only races on first-time key generation.
func lockFile(_ *os.File) (unlock func(), err error) {
	return func() {}, nil
}
