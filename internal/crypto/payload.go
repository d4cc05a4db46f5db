package crypto

import (
	"fmt"
	"os"
)

// EncryptedSuffix is appended to the path of an encrypted payload file.
const EncryptedSuffix = ".enc"

// EncryptFile seals the file at path with the given payload key and writes
// the result next to it as path + ".enc", returning the new path. The
// original file is left untouched.
func EncryptFile(path string, key []byte) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read payload %s: %w", path, err)
	}

	sealed, err := Seal(data, key)
	if err != nil {
		return "", fmt.Errorf("encrypt payload %s: %w", path, err)
	}

	out := path + EncryptedSuffix
	if err := os.WriteFile(out, sealed, 0o600); err != nil {
		return "", fmt.Errorf("write encrypted payload %s: %w", out, err)
	}
	return out, nil
}

// DecryptFile opens the encrypted payload at path and writes the plaintext
// to dest, returning dest.
func DecryptFile(path, dest string, key []byte) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read encrypted payload %s: %w", path, err)
	}

	plaintext, err := Open(data, key)
	if err != nil {
		return "", fmt.Errorf("decrypt payload %s: %w", path, err)
	}

	if err := os.WriteFile(dest, plaintext, 0o600); err != nil {
		return "", fmt.Errorf("write decrypted payload %s: %w", dest, err)
	}
	return dest, nil
}
