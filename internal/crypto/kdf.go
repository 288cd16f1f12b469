package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/text/unicode/norm"

	"github.com/lockme-app/lockme/internal/models"
)

const (
	// KeySize is the derived key length (AES-256).
	KeySize = 32

	// SaltSize is the fixed per-container salt length.
	SaltSize = 16

	// KDFArgon2id identifies the only key derivation algorithm in
	// container version 1.
	KDFArgon2id uint8 = 1

	// Default Argon2id cost parameters. Embedded in new containers;
	// decryption always reads costs from the header instead.
	DefaultTimeCost  uint32 = 3
	DefaultMemoryKiB uint32 = 64 * 1024
	DefaultThreads   uint8  = 4
)

// KDFParams holds the key derivation parameters of one container.
type KDFParams struct {
	Algorithm uint8
	TimeCost  uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultKDFParams returns the cost parameters for new containers.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Algorithm: KDFArgon2id,
		TimeCost:  DefaultTimeCost,
		MemoryKiB: DefaultMemoryKiB,
		Threads:   DefaultThreads,
	}
}

// Validate checks that the parameters are usable.
func (p KDFParams) Validate() error {
	if p.Algorithm != KDFArgon2id {
		return fmt.Errorf("unknown KDF algorithm id %d: %w", p.Algorithm, models.ErrMalformedHeader)
	}
	if p.TimeCost == 0 {
		return fmt.Errorf("zero KDF time cost: %w", models.ErrMalformedHeader)
	}
	// Argon2 requires at least 8KiB per thread.
	if p.MemoryKiB < 8*uint32(p.Threads) {
		return fmt.Errorf("KDF memory %dKiB too small: %w", p.MemoryKiB, models.ErrMalformedHeader)
	}
	if p.Threads == 0 {
		return fmt.Errorf("zero KDF threads: %w", models.ErrMalformedHeader)
	}
	return nil
}

// DeriveKey derives a symmetric key from a passphrase and salt.
//
// The passphrase is NFKC-normalized first so that visually identical
// input composed differently (e.g. macOS vs Linux IMEs) derives the
// same key. The caller owns the returned key and must Zero it when
// the pipeline run ends.
func DeriveKey(passphrase string, salt []byte, params KDFParams) ([]byte, error) {
	if passphrase == "" {
		return nil, models.ErrInvalidPassphrase
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d: %w",
			SaltSize, len(salt), models.ErrMalformedHeader)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	normalized := norm.NFKC.Bytes([]byte(passphrase))
	defer Zero(normalized)

	key := argon2.IDKey(normalized, salt,
		params.TimeCost, params.MemoryKiB, params.Threads, KeySize)

	return key, nil
}

// NewSalt generates a fresh random salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// NewBaseNonce generates a fresh random base nonce.
func NewBaseNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate base nonce: %w", err)
	}
	return nonce, nil
}

// Zero overwrites a buffer. Used to discard keys and normalized
// passphrases once a pipeline run terminates.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
