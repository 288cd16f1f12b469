package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"github.com/lockme-app/lockme/internal/models"
)

const (
	// NonceSize is the GCM nonce length.
	NonceSize = 12

	// TagSize is the GCM authentication tag length.
	TagSize = 16
)

// ChunkCipher performs authenticated encryption of individual chunks
// under one key and base nonce. The nonce for chunk i is derived from
// the base nonce and i, so nonce reuse within a container is
// structurally impossible as long as indexes are not repeated; Seal
// enforces that by requiring strictly increasing indexes.
type ChunkCipher struct {
	aead      cipher.AEAD
	baseNonce []byte

	sealed    bool
	lastIndex uint64
}

// NewChunkCipher creates a chunk cipher for one container.
func NewChunkCipher(key, baseNonce []byte) (*ChunkCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	if len(baseNonce) != NonceSize {
		return nil, fmt.Errorf("base nonce must be %d bytes, got %d", NonceSize, len(baseNonce))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	nonce := make([]byte, NonceSize)
	copy(nonce, baseNonce)

	return &ChunkCipher{
		aead:      aead,
		baseNonce: nonce,
	}, nil
}

// NonceFor derives the nonce for a chunk index: the base nonce with
// its trailing eight bytes XORed with the big-endian index.
func (c *ChunkCipher) NonceFor(index uint64) []byte {
	nonce := make([]byte, NonceSize)
	copy(nonce, c.baseNonce)

	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	for i := 0; i < 8; i++ {
		nonce[NonceSize-8+i] ^= idx[i]
	}

	return nonce
}

// Seal encrypts one chunk. Indexes must be strictly increasing within
// one ChunkCipher; a repeated or out-of-order index would reuse a
// nonce under the same key and is refused.
func (c *ChunkCipher) Seal(index uint64, associatedData, plaintext []byte) ([]byte, error) {
	if c.sealed && index <= c.lastIndex {
		return nil, fmt.Errorf("chunk %d after %d: %w", index, c.lastIndex, models.ErrNonceReuse)
	}
	c.sealed = true
	c.lastIndex = index

	return c.aead.Seal(nil, c.NonceFor(index), plaintext, associatedData), nil
}

// Open decrypts and authenticates one chunk. Any tag failure is
// reported as an integrity violation; the caller decides whether a
// chunk 0 failure should surface as a wrong-passphrase error.
func (c *ChunkCipher) Open(index uint64, associatedData, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < TagSize {
		return nil, models.ErrIntegrityViolation
	}

	plaintext, err := c.aead.Open(nil, c.NonceFor(index), ciphertext, associatedData)
	if err != nil {
		return nil, models.ErrIntegrityViolation
	}

	return plaintext, nil
}
