package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/lockme-app/lockme/internal/crypto"
	"github.com/lockme-app/lockme/internal/models"
)

// Each frame carries the chunk index as a redundant cross-check
// against stream position, the ciphertext length, then the
// ciphertext plus tag.
const frameHeaderLen = 4 + 4

// FrameAAD returns the associated data for chunk index. Chunk 0
// binds the full serialized header (so KDF parameters and filename
// are tamper-evident); later chunks bind their index, which prevents
// frame reordering and splicing.
func FrameAAD(index uint64, headerBytes []byte) []byte {
	if index == 0 {
		return headerBytes
	}
	var aad [8]byte
	binary.BigEndian.PutUint64(aad[:], index)
	return aad[:]
}

// WriteFrame appends one chunk frame to w.
func WriteFrame(w io.Writer, index uint64, ciphertext []byte) error {
	var hdr [frameHeaderLen]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(index))
	binary.BigEndian.PutUint32(hdr[4:], uint32(len(ciphertext)))

	if _, err := w.Write(hdr[:]); err != nil {
		return &models.IOError{Op: "write", Path: "container", Err: err}
	}
	if _, err := w.Write(ciphertext); err != nil {
		return &models.IOError{Op: "write", Path: "container", Err: err}
	}
	return nil
}

// FrameReader iterates a container's frames sequentially, validating
// index monotonicity and per-chunk lengths against the header. It is
// restartable only from the start; v1 has no random access.
type FrameReader struct {
	r      io.Reader
	header *Header
	next   uint64
	chunks uint64
}

// NewFrameReader creates a frame iterator positioned just after the
// header.
func NewFrameReader(r io.Reader, h *Header) *FrameReader {
	return &FrameReader{
		r:      r,
		header: h,
		chunks: h.Chunks(),
	}
}

// Next returns the next frame's index and ciphertext. After the final
// frame it verifies the stream is exhausted and returns io.EOF.
func (fr *FrameReader) Next() (uint64, []byte, error) {
	if fr.next >= fr.chunks {
		// The header's declared size admits no more frames; any
		// trailing bytes mean the container is inconsistent.
		var one [1]byte
		if _, err := fr.r.Read(one[:]); err == nil {
			return 0, nil, fmt.Errorf("trailing data after final frame: %w", models.ErrSizeMismatch)
		}
		return 0, nil, io.EOF
	}

	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		return 0, nil, frameReadErr(err)
	}

	index := uint64(binary.BigEndian.Uint32(hdr[:4]))
	ctLen := binary.BigEndian.Uint32(hdr[4:])

	if index != fr.next {
		return 0, nil, fmt.Errorf("frame index %d, expected %d: %w",
			index, fr.next, models.ErrMalformedHeader)
	}

	wantLen := fr.header.ChunkPlaintextLen(index) + crypto.TagSize
	if ctLen != wantLen {
		return 0, nil, fmt.Errorf("frame %d length %d, expected %d: %w",
			index, ctLen, wantLen, models.ErrSizeMismatch)
	}

	ciphertext := make([]byte, ctLen)
	if _, err := io.ReadFull(fr.r, ciphertext); err != nil {
		return 0, nil, frameReadErr(err)
	}

	fr.next++
	return index, ciphertext, nil
}

func frameReadErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("frame: %w", models.ErrTruncatedContainer)
	}
	return &models.IOError{Op: "read", Path: "container", Err: err}
}
