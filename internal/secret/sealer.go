// Package secret seals sensitive payload fields at rest with AES-256-GCM.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Prefix marks a sealed string value.
const Prefix = "enc:"

// DefaultKeys are the payload keys sealed when no explicit list is given.
var DefaultKeys = []string{"value", "password"}

// Sealer encrypts selected string fields of a payload. A nil *Sealer passes
// payloads through unchanged.
type Sealer struct {
	gcm  cipher.AEAD
	keys map[string]struct{}
}

// NewSealer builds a sealer from a 64 hex char key. An empty key returns nil.
func NewSealer(hexKey string, keys ...string) (*Sealer, error) {
	if hexKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes (64 hex chars), got %d bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	if len(keys) == 0 {
		keys = DefaultKeys
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return &Sealer{gcm: gcm, keys: set}, nil
}

// Seal returns a copy of payload with sensitive string fields encrypted.
func (s *Sealer) Seal(payload map[string]any) (map[string]any, error) {
	if s == nil || payload == nil {
		return payload, nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		str, ok := v.(string)
		if _, sensitive := s.keys[k]; !sensitive || !ok || strings.HasPrefix(str, Prefix) {
			out[k] = v
			continue
		}
		sealed, err := s.encrypt(str)
		if err != nil {
			return nil, fmt.Errorf("sealing %q: %w", k, err)
		}
		out[k] = Prefix + sealed
	}
	return out, nil
}

// Open returns a copy of payload with every sealed field decrypted.
func (s *Sealer) Open(payload map[string]any) (map[string]any, error) {
	if s == nil || payload == nil {
		return payload, nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		str, ok := v.(string)
		if !ok || !strings.HasPrefix(str, Prefix) {
			out[k] = v
			continue
		}
		plain, err := s.decrypt(strings.TrimPrefix(str, Prefix))
		if err != nil {
			return nil, fmt.Errorf("opening %q: %w", k, err)
		}
		out[k] = plain
	}
	return out, nil
}

func (s *Sealer) encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	return hex.EncodeToString(s.gcm.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

func (s *Sealer) decrypt(ciphertextHex string) (string, error) {
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}
	nonceSize := s.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}
	return string(plaintext), nil
}
