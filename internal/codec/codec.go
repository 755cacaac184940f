// Package codec turns chat messages into opaque sealed blobs and back.
//
// A blob is nonce || XChaCha20-Poly1305(flag || payload), where payload is the
// CBOR encoding of the message, zstd-compressed when flag says so.
package codec

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/thereayou/cipherchat/internal/models"
)

// KeySize is the length of a codec key in bytes.
const KeySize = chacha20poly1305.KeySize

// Codec seals and opens messages with a single process-lifetime key.
// It is safe for concurrent use.
type Codec struct {
	aead cipher.AEAD
}

func New(key []byte) (*Codec, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCrypto, err)
	}
	return &Codec{aead: aead}, nil
}

// NewRandom creates a codec with a fresh random key. Messages sealed by it
// cannot be read after the process exits.
func NewRandom() (*Codec, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCrypto, err)
	}
	return New(key)
}

// ParseKey decodes a base64 (standard or URL alphabet) key.
func ParseKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		key, err = base64.URLEncoding.DecodeString(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: encryption key is not base64", models.ErrValidation)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: encryption key must be %d bytes, got %d", models.ErrValidation, KeySize, len(key))
	}
	return key, nil
}

func (c *Codec) Encode(m *models.Message) ([]byte, error) {
	payload, err := encMode.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: encode message: %v", models.ErrCrypto, err)
	}
	return c.seal(frame(payload))
}

func (c *Codec) Decode(blob []byte) (*models.Message, error) {
	framed, err := c.open(blob)
	if err != nil {
		return nil, err
	}
	payload, err := unframe(framed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCrypto, err)
	}
	var m models.Message
	if err := decMode.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("%w: decode message: %v", models.ErrCrypto, err)
	}
	return &m, nil
}

func (c *Codec) seal(data []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(data)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCrypto, err)
	}
	return c.aead.Seal(nonce, nonce, data, nil), nil
}

func (c *Codec) open(blob []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(blob) < ns+c.aead.Overhead() {
		return nil, fmt.Errorf("%w: blob too short", models.ErrCrypto)
	}
	data, err := c.aead.Open(nil, blob[:ns], blob[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCrypto, err)
	}
	return data, nil
}
