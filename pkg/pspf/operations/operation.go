// Package operations implements the reversible per-opcode codecs (§4.1) and
// dispatches on the opcode byte through a small tagged-variant registry.
package operations

import (
	"fmt"
	"io"

	"github.com/pspf/flavorpack/pkg/pspf/format"
)

// Codec applies and reverses one opcode's transform, on buffers or streams.
type Codec interface {
	Opcode() format.Opcode
	Apply(data []byte) ([]byte, error)
	ApplyStream(r io.Reader, w io.Writer) error
	Reverse(data []byte) ([]byte, error)
	ReverseStream(r io.Reader, w io.Writer) error
}

// registry maps an opcode to its codec. Each codec file registers itself
// from init() so adding a codec never touches this file.
var registry = map[format.Opcode]Codec{}

// Register adds c to the registry under its own opcode, the pattern every
// codec file follows in its init().
func Register(c Codec) {
	registry[c.Opcode()] = c
}

// Get looks up the codec for an opcode.
func Get(op format.Opcode) (Codec, error) {
	c, ok := registry[op]
	if !ok {
		return nil, fmt.Errorf("no codec registered for opcode 0x%02x", op)
	}
	return c, nil
}

// ApplyChain runs data through each opcode in ops left-to-right (§4.2).
func ApplyChain(data []byte, ops []format.Opcode) ([]byte, error) {
	out := data
	for _, op := range ops {
		c, err := Get(op)
		if err != nil {
			return nil, err
		}
		out, err = c.Apply(out)
		if err != nil {
			return nil, fmt.Errorf("apply %s: %w", opName(op), err)
		}
	}
	return out, nil
}

// ReverseChain reverses ops right-to-left against data (§4.2).
func ReverseChain(data []byte, ops []format.Opcode) ([]byte, error) {
	out := data
	for i := len(ops) - 1; i >= 0; i-- {
		c, err := Get(ops[i])
		if err != nil {
			return nil, err
		}
		out, err = c.Reverse(out)
		if err != nil {
			return nil, fmt.Errorf("reverse %s: %w", opName(ops[i]), err)
		}
	}
	return out, nil
}

func opName(op format.Opcode) string {
	s, err := format.OperationsToString(uint64(op))
	if err != nil {
		return fmt.Sprintf("0x%02x", op)
	}
	return s
}
