package persistence

import (
	"fmt"

	"github.com/hupe1980/mrpt/codec"
)

// Parameters is the content of the parameters artifact.
type Parameters struct {
	FormatVersion     int      `json:"format_version"`
	NumTrees          int      `json:"num_trees"`
	Depth             int      `json:"depth"`
	RandomSeed        int64    `json:"random_seed"`
	Metric            string   `json:"metric"`
	Dimension         int      `json:"dimension"`
	Compression       string   `json:"compression"`
	IDs               []uint64 `json:"ids"`
	StructureChecksum uint32   `json:"structure_checksum"`
}

// Validate checks the parameters for internal consistency.
func (p *Parameters) Validate() error {
	if p.FormatVersion != ParametersVersion {
		return fmt.Errorf("%w: parameters version %d", ErrInvalidVersion, p.FormatVersion)
	}
	if p.NumTrees < 1 || p.Depth < 1 || p.Dimension < 1 {
		return fmt.Errorf("%w: num_trees=%d depth=%d dimension=%d", ErrMalformed, p.NumTrees, p.Depth, p.Dimension)
	}
	if len(p.IDs) == 0 {
		return fmt.Errorf("%w: no identifiers", ErrMalformed)
	}
	for i := 1; i < len(p.IDs); i++ {
		if p.IDs[i] <= p.IDs[i-1] {
			return fmt.Errorf("%w: identifiers not strictly ascending at %d", ErrMalformed, i)
		}
	}
	if _, err := ParseCompression(p.Compression); err != nil {
		return err
	}
	return nil
}

// Matches checks that h describes the structure these parameters were saved with.
func (p *Parameters) Matches(h *FileHeader) error {
	switch {
	case int(h.NumTrees) != p.NumTrees:
		return fmt.Errorf("%w: structure has %d trees, parameters say %d", ErrMalformed, h.NumTrees, p.NumTrees)
	case int(h.Depth) != p.Depth:
		return fmt.Errorf("%w: structure depth %d, parameters say %d", ErrMalformed, h.Depth, p.Depth)
	case int(h.Dimension) != p.Dimension:
		return fmt.Errorf("%w: structure dimension %d, parameters say %d", ErrMalformed, h.Dimension, p.Dimension)
	case h.Size != uint64(len(p.IDs)):
		return fmt.Errorf("%w: structure covers %d ordinals, parameters list %d ids", ErrMalformed, h.Size, len(p.IDs))
	}
	return nil
}

// EncodeParameters sets the format version and encodes p with c
// (codec.Default when nil).
func EncodeParameters(c codec.Codec, p *Parameters) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	p.FormatVersion = ParametersVersion
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return c.Marshal(p)
}

// DecodeParameters decodes and validates a parameters artifact.
func DecodeParameters(c codec.Codec, data []byte) (*Parameters, error) {
	if c == nil {
		c = codec.Default
	}
	var p Parameters
	if err := c.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
