package credential

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// TokenEncryption provides encryption/decryption for credential values at rest.
// Uses AES-256-GCM for authenticated encryption.
//
// Security Properties:
//   - AES-256 provides strong confidentiality
//   - GCM mode provides both encryption and authentication (AEAD)
//   - Random nonce for each encryption (never reused)
//
// Key Management:
//   - Key must be 32 bytes (256 bits)
//   - Never hardcode keys in source code
type TokenEncryption struct {
	gcm cipher.AEAD
}

// NewTokenEncryption creates a TokenEncryption for a 32-byte key.
func NewTokenEncryption(key []byte) (*TokenEncryption, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be exactly 32 bytes (256 bits), got %d bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &TokenEncryption{gcm: gcm}, nil
}

// Encrypt returns base64(nonce || ciphertext || tag). Empty input stays empty.
func (e *TokenEncryption) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := e.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt.
func (e *TokenEncryption) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	nonceSize := e.gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// GenerateEncryptionKey generates a random 32-byte key.
func GenerateEncryptionKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	return key, nil
}

// EncryptionKeyFromBase64 decodes a base64 key. An empty string means
// encryption is disabled and returns a nil key.
func EncryptionKeyFromBase64(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d bytes", len(key))
	}
	return key, nil
}

// encryptedStore encrypts values on the way into a Store and decrypts them
// on the way out. Keys are stored in clear.
type encryptedStore struct {
	inner Store
	enc   *TokenEncryption
}

// NewEncryptedStore wraps inner so every value is encrypted at rest.
// A nil or empty key returns inner unchanged.
func NewEncryptedStore(inner Store, key []byte) (Store, error) {
	if len(key) == 0 {
		return inner, nil
	}
	enc, err := NewTokenEncryption(key)
	if err != nil {
		return nil, err
	}
	return &encryptedStore{inner: inner, enc: enc}, nil
}

func (s *encryptedStore) Load(ctx context.Context) (map[string]string, error) {
	raw, err := s.inner.Load(ctx)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		plain, err := s.enc.Decrypt(v)
		if err != nil {
			return nil, fmt.Errorf("decrypt %q: %w", k, err)
		}
		values[k] = plain
	}
	return values, nil
}

func (s *encryptedStore) Apply(ctx context.Context, edit Edit) error {
	sealed := Edit{Remove: edit.Remove}
	if len(edit.Set) > 0 {
		sealed.Set = make(map[string]string, len(edit.Set))
		for k, v := range edit.Set {
			ct, err := s.enc.Encrypt(v)
			if err != nil {
				return fmt.Errorf("encrypt %q: %w", k, err)
			}
			sealed.Set[k] = ct
		}
	}
	return s.inner.Apply(ctx, sealed)
}
