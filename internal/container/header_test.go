package container_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockme-app/lockme/internal/container"
	"github.com/lockme-app/lockme/internal/crypto"
	"github.com/lockme-app/lockme/internal/models"
)

func validHeader() *container.Header {
	salt := make([]byte, crypto.SaltSize)
	nonce := make([]byte, crypto.NonceSize)
	for i := range salt {
		salt[i] = byte(i)
	}
	for i := range nonce {
		nonce[i] = byte(0xA0 + i)
	}
	return &container.Header{
		Version: container.Version,
		KDF: crypto.KDFParams{
			Algorithm: crypto.KDFArgon2id,
			TimeCost:  3,
			MemoryKiB: 64 * 1024,
			Threads:   4,
		},
		Salt:         salt,
		BaseNonce:    nonce,
		OriginalName: "report.pdf",
		OriginalSize: 10 * 1024 * 1024,
		ChunkSize:    4 * 1024 * 1024,
	}
}

func TestHeader_MarshalReadRoundTrip(t *testing.T) {
	h := validHeader()

	raw, err := h.Marshal()
	require.NoError(t, err)

	parsed, parsedRaw, err := container.ReadHeader(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, h, parsed)
	assert.Equal(t, raw, parsedRaw, "parsed raw bytes must match the canonical encoding")
}

func TestHeader_Chunks(t *testing.T) {
	tests := []struct {
		name      string
		size      uint64
		chunkSize uint32
		want      uint64
	}{
		{"empty file still has a chunk", 0, 4096, 1},
		{"one byte", 1, 4096, 1},
		{"one byte under", 4095, 4096, 1},
		{"exact chunk", 4096, 4096, 1},
		{"one byte over", 4097, 4096, 2},
		{"exact multiple", 8192, 4096, 2},
		{"10 MiB at 4 MiB chunks", 10 * 1024 * 1024, 4 * 1024 * 1024, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validHeader()
			h.OriginalSize = tt.size
			h.ChunkSize = tt.chunkSize
			assert.Equal(t, tt.want, h.Chunks())
		})
	}
}

func TestHeader_ChunkPlaintextLen(t *testing.T) {
	h := validHeader()
	h.OriginalSize = 10 * 1024 * 1024
	h.ChunkSize = 4 * 1024 * 1024

	assert.Equal(t, uint32(4*1024*1024), h.ChunkPlaintextLen(0))
	assert.Equal(t, uint32(4*1024*1024), h.ChunkPlaintextLen(1))
	assert.Equal(t, uint32(2*1024*1024), h.ChunkPlaintextLen(2))

	empty := validHeader()
	empty.OriginalSize = 0
	assert.Equal(t, uint32(0), empty.ChunkPlaintextLen(0))
}

func TestHeader_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*container.Header)
		wantErr error
	}{
		{
			name:    "wrong version",
			mutate:  func(h *container.Header) { h.Version = 2 },
			wantErr: models.ErrUnsupportedVersion,
		},
		{
			name:    "short salt",
			mutate:  func(h *container.Header) { h.Salt = h.Salt[:8] },
			wantErr: models.ErrMalformedHeader,
		},
		{
			name:    "short nonce",
			mutate:  func(h *container.Header) { h.BaseNonce = h.BaseNonce[:4] },
			wantErr: models.ErrMalformedHeader,
		},
		{
			name:    "empty name",
			mutate:  func(h *container.Header) { h.OriginalName = "" },
			wantErr: models.ErrMalformedHeader,
		},
		{
			name:    "invalid UTF-8 name",
			mutate:  func(h *container.Header) { h.OriginalName = string([]byte{0xFF, 0xFE}) },
			wantErr: models.ErrMalformedHeader,
		},
		{
			name:    "zero chunk size",
			mutate:  func(h *container.Header) { h.ChunkSize = 0 },
			wantErr: models.ErrMalformedHeader,
		},
		{
			name:    "oversized chunk size",
			mutate:  func(h *container.Header) { h.ChunkSize = container.MaxChunkSize + 1 },
			wantErr: models.ErrMalformedHeader,
		},
		{
			name:    "bad KDF params",
			mutate:  func(h *container.Header) { h.KDF.TimeCost = 0 },
			wantErr: models.ErrMalformedHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validHeader()
			tt.mutate(h)
			assert.ErrorIs(t, h.Validate(), tt.wantErr)

			_, err := h.Marshal()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReadHeader_BadMagic(t *testing.T) {
	raw, err := validHeader().Marshal()
	require.NoError(t, err)

	raw[0] = 'X'

	_, _, err = container.ReadHeader(bytes.NewReader(raw))
	assert.ErrorIs(t, err, models.ErrMalformedHeader)
}

func TestReadHeader_UnsupportedVersion(t *testing.T) {
	raw, err := validHeader().Marshal()
	require.NoError(t, err)

	// Version lives right after the 6-byte magic.
	raw[6] = 0
	raw[7] = 9

	_, _, err = container.ReadHeader(bytes.NewReader(raw))
	assert.ErrorIs(t, err, models.ErrUnsupportedVersion)
}

func TestReadHeader_Truncated(t *testing.T) {
	raw, err := validHeader().Marshal()
	require.NoError(t, err)

	for _, cut := range []int{0, 5, 20, len(raw) - 1} {
		_, _, err := container.ReadHeader(bytes.NewReader(raw[:cut]))
		assert.ErrorIs(t, err, models.ErrMalformedHeader, "cut at %d bytes", cut)
	}
}

func TestReadHeader_IOErrorWrapped(t *testing.T) {
	_, _, err := container.ReadHeader(iotest{})

	var ioErr *models.IOError
	assert.ErrorAs(t, err, &ioErr)
}

type iotest struct{}

func (iotest) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }
