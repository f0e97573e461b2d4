package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"sparkload/pkg/errors"
)

const (
	encryptedPrefix = "ENC["
	encryptedSuffix = "]"

	// EnvEncryptionKey holds the passphrase ENC[...] values are sealed with.
	EnvEncryptionKey = "SPARKLOAD_ENCRYPTION_KEY"

	saltSize         = 16
	keySize          = 32
	pbkdf2Iterations = 100000
)

// passphrase returns the encryption passphrase, falling back to a
// machine-specific value.
func passphrase() string {
	if key := os.Getenv(EnvEncryptionKey); key != "" {
		return key
	}
	hostname, _ := os.Hostname()
	homeDir, _ := os.UserHomeDir()
	return fmt.Sprintf("%s-%s-sparkload", hostname, homeDir)
}

func deriveKey(salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase()), salt, pbkdf2Iterations, keySize, sha256.New)
}

// EncryptPassword seals a password with AES-256-GCM. The output is
// ENC[base64(salt | nonce | ciphertext)].
func EncryptPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	if IsEncrypted(password) {
		return password, nil
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(deriveKey(salt))
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(password), nil)
	encoded := base64.StdEncoding.EncodeToString(append(salt, sealed...))
	return encryptedPrefix + encoded + encryptedSuffix, nil
}

// DecryptPassword opens a value produced by EncryptPassword. Plain values
// are returned unchanged.
func DecryptPassword(encrypted string) (string, error) {
	if !IsEncrypted(encrypted) {
		return encrypted, nil
	}

	encoded := strings.TrimSuffix(strings.TrimPrefix(encrypted, encryptedPrefix), encryptedSuffix)
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", encryptionError("failed to decode encrypted password", err)
	}
	if len(data) < saltSize {
		return "", encryptionError("encrypted password is truncated", nil)
	}

	salt, data := data[:saltSize], data[saltSize:]
	gcm, err := newGCM(deriveKey(salt))
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", encryptionError("encrypted password is truncated", nil)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", encryptionError("failed to decrypt password", err)
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether value is an ENC[...] string
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, encryptedPrefix) && strings.HasSuffix(value, encryptedSuffix)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func encryptionError(message string, cause error) error {
	var err *errors.AppError
	if cause != nil {
		err = errors.Wrap(cause, errors.ErrCodeEncryption, message)
	} else {
		err = errors.New(errors.ErrCodeEncryption, message)
	}
	return err.
		WithSeverity(errors.SeverityCritical).
		WithContext("field", "CLUSTER.DB_PASSWORD").
		WithSuggestions(
			fmt.Sprintf("Set %s to the passphrase used when the value was encrypted", EnvEncryptionKey),
			"Re-run sparkload encrypt-password to produce a new value",
		)
}
