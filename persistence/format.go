package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/mrpt/internal/hash"
)

const (
	// MagicNumber identifies structural artifacts (ASCII "MRPT", little-endian).
	MagicNumber uint32 = 'M' | 'R'<<8 | 'P'<<16 | 'T'<<24
	// Version is the current structural format version.
	Version uint32 = 1
	// HeaderSize is the encoded size of FileHeader.
	HeaderSize = 64
	// ParametersVersion is the current parameters artifact version.
	ParametersVersion = 1
)

var (
	// ErrInvalidMagic is returned when an artifact does not start with the magic number.
	ErrInvalidMagic = errors.New("persistence: invalid magic number")
	// ErrInvalidVersion is returned for unsupported format versions.
	ErrInvalidVersion = errors.New("persistence: unsupported version")
	// ErrTruncated is returned when an artifact ends early.
	ErrTruncated = errors.New("persistence: truncated artifact")
	// ErrMalformed is returned when an artifact is well-framed but describes an impossible structure.
	ErrMalformed = errors.New("persistence: malformed artifact")
	// ErrUnknownCompression is returned for unrecognized compression identifiers.
	ErrUnknownCompression = errors.New("persistence: unknown compression")
)

// Compression selects how the structural payload is stored.
type Compression uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone Compression = iota
	// CompressionZstd compresses with Zstandard.
	CompressionZstd
	// CompressionLZ4 compresses with LZ4 frames.
	CompressionLZ4
)

// String returns the name of the compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name. The empty string means none.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Compression) MarshalText() ([]byte, error) {
	if c > CompressionLZ4 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Compression) UnmarshalText(text []byte) error {
	v, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// FileHeader is the 64-byte header at the start of every structural artifact.
type FileHeader struct {
	Magic       uint32
	Version     uint32
	NumTrees    uint32
	Depth       uint32
	Dimension   uint32
	Compression Compression
	_           [3]byte
	Size        uint64 // population size
	PayloadLen  uint64 // stored payload bytes
	RawLen      uint64 // uncompressed payload bytes
	PayloadCRC  uint32 // CRC32C of the stored payload
	_           [8]byte
	HeaderCRC   uint32 // CRC32C of the preceding 60 bytes
}

// MarshalBinary encodes the header and fills in Magic, Version and HeaderCRC.
func (h *FileHeader) MarshalBinary() ([]byte, error) {
	h.Magic = MagicNumber
	h.Version = Version

	buf := make([]byte, HeaderSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:], h.Magic)
	le.PutUint32(buf[4:], h.Version)
	le.PutUint32(buf[8:], h.NumTrees)
	le.PutUint32(buf[12:], h.Depth)
	le.PutUint32(buf[16:], h.Dimension)
	buf[20] = byte(h.Compression)
	le.PutUint64(buf[24:], h.Size)
	le.PutUint64(buf[32:], h.PayloadLen)
	le.PutUint64(buf[40:], h.RawLen)
	le.PutUint32(buf[48:], h.PayloadCRC)

	h.HeaderCRC = hash.CRC32C(buf[:HeaderSize-4])
	le.PutUint32(buf[HeaderSize-4:], h.HeaderCRC)
	return buf, nil
}

// UnmarshalBinary decodes and verifies a header.
func (h *FileHeader) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: header is %d bytes", ErrTruncated, len(data))
	}

	le := binary.LittleEndian
	if magic := le.Uint32(data[0:]); magic != MagicNumber {
		return fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, magic)
	}
	if want, got := le.Uint32(data[HeaderSize-4:]), hash.CRC32C(data[:HeaderSize-4]); want != got {
		return &ChecksumMismatchError{Section: "header", Expected: want, Actual: got}
	}
	if version := le.Uint32(data[4:]); version != Version {
		return fmt.Errorf("%w: got %d", ErrInvalidVersion, version)
	}

	*h = FileHeader{
		Magic:       MagicNumber,
		Version:     Version,
		NumTrees:    le.Uint32(data[8:]),
		Depth:       le.Uint32(data[12:]),
		Dimension:   le.Uint32(data[16:]),
		Compression: Compression(data[20]),
		Size:        le.Uint64(data[24:]),
		PayloadLen:  le.Uint64(data[32:]),
		RawLen:      le.Uint64(data[40:]),
		PayloadCRC:  le.Uint32(data[48:]),
		HeaderCRC:   le.Uint32(data[HeaderSize-4:]),
	}

	if h.Compression > CompressionLZ4 {
		return fmt.Errorf("%w: %d", ErrUnknownCompression, data[20])
	}
	return nil
}
