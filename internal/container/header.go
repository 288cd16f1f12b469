// Package container defines the .lockme binary format: a
// self-describing header followed by a sequence of authenticated
// chunk frames. The codec only structures bytes; keys and
// authentication live in the crypto package.
package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/lockme-app/lockme/internal/crypto"
	"github.com/lockme-app/lockme/internal/models"
)

const (
	// Version is the current container format version.
	Version uint16 = 1

	// Suffix is the container filename extension.
	Suffix = ".lockme"

	// MaxNameLen bounds the stored original filename.
	MaxNameLen = 4096

	// MaxChunkSize bounds the declared chunk size so a malformed
	// header cannot force a huge allocation.
	MaxChunkSize = 256 * 1024 * 1024
)

var magic = [6]byte{'L', 'O', 'C', 'K', 'M', 'E'}

// Header describes one container. All fields are public; secrecy
// lives entirely in the chunk ciphertexts. The serialized header is
// bound into chunk 0's authentication tag, so tampering with any
// field is detected at decrypt time.
type Header struct {
	Version      uint16
	KDF          crypto.KDFParams
	Salt         []byte // crypto.SaltSize bytes
	BaseNonce    []byte // crypto.NonceSize bytes
	OriginalName string
	OriginalSize uint64
	ChunkSize    uint32
}

// Chunks returns the frame count: ceil(OriginalSize / ChunkSize),
// with a minimum of one so even an empty file carries a chunk 0 that
// acts as the passphrase correctness gate.
func (h *Header) Chunks() uint64 {
	if h.OriginalSize == 0 {
		return 1
	}
	return (h.OriginalSize + uint64(h.ChunkSize) - 1) / uint64(h.ChunkSize)
}

// ChunkPlaintextLen returns the plaintext length of chunk i.
func (h *Header) ChunkPlaintextLen(i uint64) uint32 {
	last := h.Chunks() - 1
	if i < last {
		return h.ChunkSize
	}
	return uint32(h.OriginalSize - last*uint64(h.ChunkSize))
}

// Validate checks field consistency.
func (h *Header) Validate() error {
	if h.Version != Version {
		return fmt.Errorf("version %d: %w", h.Version, models.ErrUnsupportedVersion)
	}
	if err := h.KDF.Validate(); err != nil {
		return err
	}
	if len(h.Salt) != crypto.SaltSize {
		return fmt.Errorf("salt length %d: %w", len(h.Salt), models.ErrMalformedHeader)
	}
	if len(h.BaseNonce) != crypto.NonceSize {
		return fmt.Errorf("base nonce length %d: %w", len(h.BaseNonce), models.ErrMalformedHeader)
	}
	if h.OriginalName == "" || len(h.OriginalName) > MaxNameLen {
		return fmt.Errorf("original name length %d: %w", len(h.OriginalName), models.ErrMalformedHeader)
	}
	if !utf8.ValidString(h.OriginalName) {
		return fmt.Errorf("original name not UTF-8: %w", models.ErrMalformedHeader)
	}
	if h.ChunkSize == 0 || h.ChunkSize > MaxChunkSize {
		return fmt.Errorf("chunk size %d: %w", h.ChunkSize, models.ErrMalformedHeader)
	}
	return nil
}

// Marshal serializes the header. The encoding is canonical: parsing
// and re-marshaling any accepted header reproduces the input bytes,
// which lets the decrypt side rebuild the exact bytes bound into
// chunk 0's associated data.
func (h *Header) Marshal() ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(magic[:])

	var u16 [2]byte
	var u32 [4]byte
	var u64 [8]byte

	binary.BigEndian.PutUint16(u16[:], h.Version)
	buf.Write(u16[:])

	buf.WriteByte(h.KDF.Algorithm)
	binary.BigEndian.PutUint32(u32[:], h.KDF.TimeCost)
	buf.Write(u32[:])
	binary.BigEndian.PutUint32(u32[:], h.KDF.MemoryKiB)
	buf.Write(u32[:])
	buf.WriteByte(h.KDF.Threads)

	buf.Write(h.Salt)
	buf.Write(h.BaseNonce)

	binary.BigEndian.PutUint16(u16[:], uint16(len(h.OriginalName)))
	buf.Write(u16[:])
	buf.WriteString(h.OriginalName)

	binary.BigEndian.PutUint64(u64[:], h.OriginalSize)
	buf.Write(u64[:])
	binary.BigEndian.PutUint32(u32[:], h.ChunkSize)
	buf.Write(u32[:])

	return buf.Bytes(), nil
}

// fixed-length prefix: magic(6) version(2) algo(1) time(4) mem(4)
// threads(1) salt(16) nonce(12) nameLen(2)
const headerPrefixLen = 6 + 2 + 1 + 4 + 4 + 1 + crypto.SaltSize + crypto.NonceSize + 2

// ReadHeader parses a header from r. It returns the parsed header
// and the exact serialized header bytes for use as chunk 0 associated
// data.
func ReadHeader(r io.Reader) (*Header, []byte, error) {
	prefix := make([]byte, headerPrefixLen)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, nil, readErr(err)
	}

	if !bytes.Equal(prefix[:6], magic[:]) {
		return nil, nil, fmt.Errorf("bad magic: %w", models.ErrMalformedHeader)
	}

	h := &Header{}
	off := 6

	h.Version = binary.BigEndian.Uint16(prefix[off:])
	off += 2
	if h.Version != Version {
		return nil, nil, fmt.Errorf("version %d: %w", h.Version, models.ErrUnsupportedVersion)
	}

	h.KDF.Algorithm = prefix[off]
	off++
	h.KDF.TimeCost = binary.BigEndian.Uint32(prefix[off:])
	off += 4
	h.KDF.MemoryKiB = binary.BigEndian.Uint32(prefix[off:])
	off += 4
	h.KDF.Threads = prefix[off]
	off++

	h.Salt = append([]byte(nil), prefix[off:off+crypto.SaltSize]...)
	off += crypto.SaltSize
	h.BaseNonce = append([]byte(nil), prefix[off:off+crypto.NonceSize]...)
	off += crypto.NonceSize

	nameLen := int(binary.BigEndian.Uint16(prefix[off:]))
	if nameLen == 0 || nameLen > MaxNameLen {
		return nil, nil, fmt.Errorf("name length %d: %w", nameLen, models.ErrMalformedHeader)
	}

	tail := make([]byte, nameLen+8+4)
	if _, err := io.ReadFull(r, tail); err != nil {
		return nil, nil, readErr(err)
	}

	h.OriginalName = string(tail[:nameLen])
	h.OriginalSize = binary.BigEndian.Uint64(tail[nameLen:])
	h.ChunkSize = binary.BigEndian.Uint32(tail[nameLen+8:])

	if err := h.Validate(); err != nil {
		return nil, nil, err
	}

	raw := make([]byte, 0, headerPrefixLen+len(tail))
	raw = append(raw, prefix...)
	raw = append(raw, tail...)

	return h, raw, nil
}

func readErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("header: %w", models.ErrMalformedHeader)
	}
	return &models.IOError{Op: "read", Path: "container", Err: err}
}
