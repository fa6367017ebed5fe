package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Default is the codec used for parameters artifacts.
var Default Codec = GoJSON{}

// JSON is a strict encoding/json codec: decoding rejects unknown fields and
// trailing data, so an artifact from a newer writer fails loudly instead of
// losing fields.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("json: trailing data after value")
	}
	return nil
}

func (JSON) Name() string { return "json" }
