package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/mrpt/internal/conv"
	"github.com/hupe1980/mrpt/internal/rptree"
)

const (
	tagLeaf  byte = 0
	tagSplit byte = 1

	// maxRawLen bounds the inflated payload a header may claim.
	maxRawLen = 1 << 40
)

// EncodeEnsemble serializes e into a structural artifact.
func EncodeEnsemble(e *rptree.Ensemble, c Compression) ([]byte, error) {
	if e == nil || len(e.Trees) == 0 {
		return nil, fmt.Errorf("%w: empty ensemble", ErrMalformed)
	}

	numTrees, err := conv.IntToUint32(len(e.Trees))
	if err != nil {
		return nil, fmt.Errorf("%w: tree count: %w", ErrMalformed, err)
	}
	depth, err := conv.IntToUint32(e.Depth)
	if err != nil {
		return nil, fmt.Errorf("%w: depth: %w", ErrMalformed, err)
	}
	dim, err := conv.IntToUint32(e.Dimension)
	if err != nil {
		return nil, fmt.Errorf("%w: dimension: %w", ErrMalformed, err)
	}
	size, err := conv.IntToUint32(e.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: size: %w", ErrMalformed, err)
	}

	var w payloadWriter
	for _, t := range e.Trees {
		count, err := conv.IntToUint32(len(t.Nodes))
		if err != nil {
			return nil, fmt.Errorf("%w: node count: %w", ErrMalformed, err)
		}
		w.u32(count)
		for i := range t.Nodes {
			n := &t.Nodes[i]
			if n.IsLeaf() {
				w.byte(tagLeaf)
				w.u32(uint32(len(n.Members)))
				for _, m := range n.Members {
					w.u32(m)
				}
				continue
			}
			if len(n.Projection) != e.Dimension {
				return nil, fmt.Errorf("%w: projection has %d components, want %d", ErrMalformed, len(n.Projection), e.Dimension)
			}
			w.byte(tagSplit)
			w.f64(n.Threshold)
			w.u32(uint32(n.Left))
			w.u32(uint32(n.Right))
			for _, v := range n.Projection {
				w.f64(v)
			}
		}
	}

	raw := w.buf.Bytes()
	stored, err := compress(c, raw)
	if err != nil {
		return nil, err
	}

	h := FileHeader{
		NumTrees:    numTrees,
		Depth:       depth,
		Dimension:   dim,
		Compression: c,
		Size:        uint64(size),
		PayloadLen:  uint64(len(stored)),
		RawLen:      uint64(len(raw)),
	}

	out := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(stored)))
	out.Write(make([]byte, HeaderSize))
	cw := NewChecksumWriter(out)
	if _, err := cw.Write(stored); err != nil {
		return nil, err
	}
	h.PayloadCRC = cw.Sum()

	header, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}
	data := out.Bytes()
	copy(data, header)
	return data, nil
}

// DecodeEnsemble parses and validates a structural artifact. The returned
// ensemble does not alias data.
func DecodeEnsemble(data []byte) (*rptree.Ensemble, *FileHeader, error) {
	var h FileHeader
	if err := h.UnmarshalBinary(data); err != nil {
		return nil, nil, err
	}

	if h.NumTrees == 0 || h.Depth == 0 || h.Dimension == 0 || h.Size == 0 {
		return nil, nil, fmt.Errorf("%w: header declares an empty index", ErrMalformed)
	}
	if h.Size > math.MaxUint32 || h.Depth > math.MaxInt32 || h.RawLen > maxRawLen {
		return nil, nil, fmt.Errorf("%w: header values out of range", ErrMalformed)
	}

	body := data[HeaderSize:]
	if uint64(len(body)) < h.PayloadLen {
		return nil, nil, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrTruncated, len(body), h.PayloadLen)
	}
	if uint64(len(body)) > h.PayloadLen {
		return nil, nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, uint64(len(body))-h.PayloadLen)
	}
	if got := Checksum(body); got != h.PayloadCRC {
		return nil, nil, &ChecksumMismatchError{Section: "payload", Expected: h.PayloadCRC, Actual: got}
	}

	raw, err := decompress(h.Compression, body, h.RawLen)
	if err != nil {
		return nil, nil, err
	}

	r := payloadReader{data: raw}
	e := &rptree.Ensemble{
		Trees:     make([]*rptree.Tree, h.NumTrees),
		Depth:     int(h.Depth),
		Dimension: int(h.Dimension),
		Size:      int(h.Size),
	}
	for i := range e.Trees {
		t, err := decodeTree(&r, &h)
		if err != nil {
			return nil, nil, fmt.Errorf("tree %d: %w", i, err)
		}
		e.Trees[i] = t
	}
	if r.err != nil {
		return nil, nil, r.err
	}
	if r.remaining() != 0 {
		return nil, nil, fmt.Errorf("%w: %d unread payload bytes", ErrMalformed, r.remaining())
	}

	return e, &h, nil
}

func decodeTree(r *payloadReader, h *FileHeader) (*rptree.Tree, error) {
	count := r.u32()
	if r.err != nil {
		return nil, r.err
	}
	// Every node needs at least five bytes, which bounds allocation on garbage.
	if count == 0 || uint64(count)*5 > uint64(r.remaining()) {
		return nil, fmt.Errorf("%w: implausible node count %d", ErrMalformed, count)
	}

	nodes := make([]rptree.Node, count)
	parents := make([]uint32, count)
	seen := make([]bool, h.Size)
	members := 0

	for i := range nodes {
		switch tag := r.byte(); tag {
		case tagLeaf:
			n := r.u32()
			if r.err != nil {
				return nil, r.err
			}
			if uint64(n) > h.Size || uint64(n)*4 > uint64(r.remaining()) {
				return nil, fmt.Errorf("%w: leaf %d holds %d members", ErrMalformed, i, n)
			}
			ms := make([]uint32, n)
			for j := range ms {
				m := r.u32()
				if uint64(m) >= h.Size || seen[m] {
					return nil, fmt.Errorf("%w: leaf %d has invalid or repeated ordinal %d", ErrMalformed, i, m)
				}
				seen[m] = true
				ms[j] = m
			}
			if n == 0 {
				return nil, fmt.Errorf("%w: leaf %d is empty", ErrMalformed, i)
			}
			members += int(n)
			nodes[i] = rptree.Node{Left: rptree.NoChild, Right: rptree.NoChild, Members: ms}
		case tagSplit:
			threshold := r.f64()
			left, right := int32(r.u32()), int32(r.u32())
			if r.err != nil {
				return nil, r.err
			}
			// Children follow their parent in arena order, which rules out cycles.
			for _, c := range [2]int32{left, right} {
				if c <= int32(i) || uint32(c) >= count {
					return nil, fmt.Errorf("%w: node %d has child %d out of range", ErrMalformed, i, c)
				}
				parents[c]++
			}
			if uint64(h.Dimension)*8 > uint64(r.remaining()) {
				return nil, ErrTruncated
			}
			proj := make([]float64, h.Dimension)
			for j := range proj {
				proj[j] = r.f64()
			}
			nodes[i] = rptree.Node{Projection: proj, Threshold: threshold, Left: left, Right: right}
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, fmt.Errorf("%w: node %d has tag %d", ErrMalformed, i, tag)
		}
		if r.err != nil {
			return nil, r.err
		}
	}

	for i := 1; i < len(parents); i++ {
		if parents[i] != 1 {
			return nil, fmt.Errorf("%w: node %d has %d parents", ErrMalformed, i, parents[i])
		}
	}
	if uint64(members) != h.Size {
		return nil, fmt.Errorf("%w: leaves hold %d of %d ordinals", ErrMalformed, members, h.Size)
	}

	t := &rptree.Tree{Nodes: nodes}
	if t.Depth() > int(h.Depth) {
		return nil, fmt.Errorf("%w: tree depth %d exceeds %d", ErrMalformed, t.Depth(), h.Depth)
	}
	return t, nil
}

type payloadWriter struct {
	buf     bytes.Buffer
	scratch [8]byte
}

func (w *payloadWriter) byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *payloadWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.scratch[:4], v)
	w.buf.Write(w.scratch[:4])
}

func (w *payloadWriter) f64(v float64) {
	binary.LittleEndian.PutUint64(w.scratch[:], math.Float64bits(v))
	w.buf.Write(w.scratch[:])
}

// payloadReader reads little-endian values with a sticky truncation error.
type payloadReader struct {
	data []byte
	off  int
	err  error
}

func (r *payloadReader) remaining() int {
	return len(r.data) - r.off
}

func (r *payloadReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.remaining() < n {
		r.err = ErrTruncated
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *payloadReader) byte() byte {
	b := r.take(1)
	if b == nil {
		return 0xff
	}
	return b[0]
}

func (r *payloadReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *payloadReader) f64() float64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
