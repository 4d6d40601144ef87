// Package safestorage resolves the SQLCipher key for a Signal Desktop
// data directory. The key is either stored in plaintext in config.json
// or encrypted with a password held in the OS secret store, using the
// Chromium "safe storage" scheme (v10 blobs).
package safestorage

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/pbkdf2"
)

// Fixed parameters of the Chromium safe-storage format. These must not
// change: they are dictated by the files Signal Desktop writes.
const (
	versionTag     = "v10"
	kdfSalt        = "saltysalt"
	kdfIterations  = 1003
	derivedKeyLen  = 16
	ivLen          = 16
	expectedKeyLen = 64 // hex characters of the 256-bit SQLCipher key
)

// Secret store item under which Signal Desktop keeps the safe-storage
// password.
const (
	keyringService = "Signal Safe Storage"
	keyringAccount = "Signal"
)

var (
	ErrKeyNotFound      = errors.New("database key not found")
	ErrMalformedKeyBlob = errors.New("malformed encrypted key blob")
	ErrDecryptionFailed = errors.New("key decryption failed")
)

// desktopConfig mirrors the key-bearing fields of Signal Desktop's
// config.json.
type desktopConfig struct {
	Key          string `json:"key"`
	EncryptedKey string `json:"encryptedKey"`
}

// lookupPassword is swapped out in tests; the default queries the OS
// secret store.
var lookupPassword = func() (string, error) {
	return keyring.Get(keyringService, keyringAccount)
}

// ResolveKey returns the hex SQLCipher key for the given Signal data
// directory. Resolution order: explicit key argument, plaintext "key"
// in config.json, then "encryptedKey" unwrapped with the secret-store
// password. Returns ErrKeyNotFound when no source yields a key.
func ResolveKey(dir, explicitKey string) (string, error) {
	if explicitKey != "" {
		return validateKey(explicitKey)
	}

	cfg, err := readDesktopConfig(dir)
	if err != nil {
		return "", err
	}

	if cfg.Key != "" {
		return validateKey(cfg.Key)
	}

	if cfg.EncryptedKey != "" {
		return unwrapEncryptedKey(cfg.EncryptedKey)
	}

	return "", fmt.Errorf("%w: no key or encryptedKey in %s", ErrKeyNotFound, filepath.Join(dir, "config.json"))
}

func readDesktopConfig(dir string) (*desktopConfig, error) {
	path := filepath.Join(dir, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrKeyNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg desktopConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// unwrapEncryptedKey decodes a hex-encoded v10 blob and decrypts it
// with the secret-store password. The plaintext is itself the hex
// database key.
func unwrapEncryptedKey(encryptedHex string) (string, error) {
	blob, err := hex.DecodeString(encryptedHex)
	if err != nil {
		return "", fmt.Errorf("%w: encryptedKey is not valid hex", ErrMalformedKeyBlob)
	}

	password, err := lookupPassword()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: encryptedKey is set but no %q item exists in the secret store", ErrKeyNotFound, keyringService)
		}
		// Access denial (sandboxing, locked keychain) is not the same as
		// "nothing configured" — tell the user how to fetch the password
		// themselves.
		return "", fmt.Errorf("secret store denied access to %q: %v; "+
			`run: security find-generic-password -s "%s" -w`,
			keyringService, err, keyringService)
	}

	plaintext, err := Decrypt([]byte(password), blob)
	if err != nil {
		return "", err
	}
	return validateKey(plaintext)
}

// Decrypt unwraps a Chromium safe-storage v10 blob using the given
// password. Returns ErrMalformedKeyBlob if the version tag is wrong and
// ErrDecryptionFailed on bad padding (wrong password or corrupt blob).
func Decrypt(password, blob []byte) (string, error) {
	if len(blob) < len(versionTag) || string(blob[:len(versionTag)]) != versionTag {
		return "", fmt.Errorf("%w: missing %q version tag", ErrMalformedKeyBlob, versionTag)
	}

	ciphertext := blob[len(versionTag):]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d is not a multiple of the block size", ErrMalformedKeyBlob, len(ciphertext))
	}

	key := pbkdf2.Key(password, []byte(kdfSalt), kdfIterations, derivedKeyLen, sha1.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	iv := bytes.Repeat([]byte{' '}, ivLen)
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	plaintext, err = stripPKCS7(plaintext)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", ErrDecryptionFailed)
	}
	return string(plaintext), nil
}

func stripPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrDecryptionFailed)
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", ErrDecryptionFailed)
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("%w: invalid padding", ErrDecryptionFailed)
		}
	}
	return data[:len(data)-pad], nil
}

func validateKey(key string) (string, error) {
	if len(key) != expectedKeyLen {
		return "", fmt.Errorf("%w: key has length %d, want %d hex characters", ErrKeyNotFound, len(key), expectedKeyLen)
	}
	if _, err := hex.DecodeString(key); err != nil {
		return "", fmt.Errorf("%w: key is not valid hex", ErrKeyNotFound)
	}
	return key, nil
}
