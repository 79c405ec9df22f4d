package format

import (
	"fmt"
	"strconv"
	"strings"

	pspferrors "github.com/pspf/flavorpack/pkg/pspf/errors"
)

// Opcode identifies one reversible byte-stream transform. The set is closed;
// all other byte values are reserved and MUST be rejected on read.
type Opcode uint8

const (
	OpNone  Opcode = 0x00
	OpTar   Opcode = 0x01
	OpGzip  Opcode = 0x10
	OpBzip2 Opcode = 0x13
	OpXZ    Opcode = 0x16
	OpZstd  Opcode = 0x1B
)

// MaxChainLength is the largest number of opcodes a chain can hold: 8 bytes
// packed into one uint64, one opcode per byte.
const MaxChainLength = 8

var opcodeNames = map[Opcode]string{
	OpNone:  "none",
	OpTar:   "tar",
	OpGzip:  "gzip",
	OpBzip2: "bzip2",
	OpXZ:    "xz",
	OpZstd:  "zstd",
}

var namesToOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		m[name] = op
	}
	return m
}()

// namedChains are canonical multi-opcode names the manifest may use directly
// instead of spelling out an array, e.g. "tar.gz".
var namedChains = map[string][]Opcode{
	"tar.gz":   {OpTar, OpGzip},
	"tgz":      {OpTar, OpGzip},
	"tar.bz2":  {OpTar, OpBzip2},
	"tbz2":     {OpTar, OpBzip2},
	"tar.xz":   {OpTar, OpXZ},
	"txz":      {OpTar, OpXZ},
	"tar.zst":  {OpTar, OpZstd},
	"tzst":     {OpTar, OpZstd},
}

// IsKnownOpcode reports whether op is part of the closed set.
func IsKnownOpcode(op Opcode) bool {
	_, ok := opcodeNames[op]
	return ok
}

// PackOperations packs up to MaxChainLength opcodes little-endian into a
// uint64, opcode i occupying bits 8i..8i+7. A zero byte terminates the
// chain implicitly; chains longer than MaxChainLength are rejected.
func PackOperations(ops []Opcode) (uint64, error) {
	if len(ops) > MaxChainLength {
		return 0, fmt.Errorf("%w: got %d", pspferrors.ErrTooManyOperations, len(ops))
	}
	var packed uint64
	for i, op := range ops {
		if !IsKnownOpcode(op) {
			return 0, fmt.Errorf("%w: 0x%02x", pspferrors.ErrUnknownOpcode, op)
		}
		packed |= uint64(op) << (8 * uint(i))
	}
	return packed, nil
}

// UnpackOperations extracts the ordered opcode sequence from a packed chain,
// stopping at the first zero byte (or after MaxChainLength opcodes).
func UnpackOperations(packed uint64) ([]Opcode, error) {
	ops := make([]Opcode, 0, MaxChainLength)
	for i := 0; i < MaxChainLength; i++ {
		b := Opcode(packed >> (8 * uint(i)) & 0xFF)
		if b == OpNone {
			break
		}
		if !IsKnownOpcode(b) {
			return nil, fmt.Errorf("%w: 0x%02x", pspferrors.ErrUnknownOpcode, b)
		}
		ops = append(ops, b)
	}
	return ops, nil
}

// OperationsToString renders a packed chain as a canonical dotted name
// ("tar.gz"), falling back to a pipe-joined opcode name list for chains that
// have no canonical short name.
func OperationsToString(packed uint64) (string, error) {
	ops, err := UnpackOperations(packed)
	if err != nil {
		return "", err
	}
	if len(ops) == 0 {
		return "none", nil
	}
	for _, name := range []string{"tar.gz", "tar.bz2", "tar.xz", "tar.zst"} {
		if chainsEqual(namedChains[name], ops) {
			return name, nil
		}
	}
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = opcodeNames[op]
	}
	return strings.Join(names, "|"), nil
}

// StringToOperations parses a canonical name, a pipe-joined opcode name
// list, or a bare opcode name into a packed chain.
func StringToOperations(s string) (uint64, error) {
	if chain, ok := namedChains[s]; ok {
		return PackOperations(chain)
	}
	parts := strings.Split(s, "|")
	ops := make([]Opcode, 0, len(parts))
	for _, p := range parts {
		op, ok := namesToOpcode[p]
		if !ok {
			return 0, fmt.Errorf("%w: opcode name %q", pspferrors.ErrUnknownOpcode, p)
		}
		ops = append(ops, op)
	}
	return PackOperations(ops)
}

// NamesToOperations packs an explicit ordered array of opcode names, the
// third accepted form of the manifest's `operations` field (see §6.1).
func NamesToOperations(names []string) (uint64, error) {
	ops := make([]Opcode, 0, len(names))
	for _, n := range names {
		op, ok := namesToOpcode[n]
		if !ok {
			return 0, fmt.Errorf("%w: opcode name %q", pspferrors.ErrUnknownOpcode, n)
		}
		ops = append(ops, op)
	}
	return PackOperations(ops)
}

// ParseManifestOperations normalises the manifest `operations` field, which
// per §6.1 may be a canonical name, an integer (as a JSON number or numeric
// string), or a JSON array of opcode names — all three MUST produce the
// identical uint64.
func ParseManifestOperations(raw interface{}) (uint64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case string:
		if packed, err := strconv.ParseUint(v, 0, 64); err == nil {
			return packed, nil
		}
		return StringToOperations(v)
	case float64:
		return uint64(v), nil
	case int:
		return uint64(v), nil
	case []interface{}:
		names := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return 0, fmt.Errorf("%w: operations array element %d is not a string", pspferrors.ErrInvalidManifest, i)
			}
			names[i] = s
		}
		return NamesToOperations(names)
	default:
		return 0, fmt.Errorf("%w: unsupported operations value %T", pspferrors.ErrInvalidManifest, raw)
	}
}

func chainsEqual(a, b []Opcode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
