package model

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
)

// fitVersion guards the on-disk layout.
const fitVersion = 1

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (f *FittedModel) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(fitVersion); err != nil {
		return nil, err
	}
	type plain FittedModel
	if err := enc.Encode((*plain)(f)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (f *FittedModel) UnmarshalBinary(b []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(b))
	var v int
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if v != fitVersion {
		return fmt.Errorf("model: unsupported fit version %d", v)
	}
	type plain FittedModel
	if err := dec.Decode((*plain)(f)); err != nil {
		return err
	}
	if f.Draws == nil || f.Design == nil || f.Design.Formula == nil {
		return errors.New("model: incomplete fit")
	}
	return nil
}

// SaveFit writes a snappy-compressed gob of f to path.
func SaveFit(path string, f *FittedModel) error {
	raw, err := f.MarshalBinary()
	if err != nil {
		return fmt.Errorf("model: encode fit: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, snappy.Encode(nil, raw), 0o644)
}

// LoadFit reads a fit written by SaveFit.
func LoadFit(path string) (*FittedModel, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := snappy.Decode(nil, b)
	if err != nil {
		return nil, fmt.Errorf("model: decompress %s: %w", path, err)
	}
	f := &FittedModel{}
	if err := f.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("model: decode %s: %w", path, err)
	}
	return f, nil
}
