package format

import (
	"encoding/json"
	"fmt"

	pspferrors "github.com/pspf/flavorpack/pkg/pspf/errors"
)

// Manifest is the bit-exact JSON shape described in §6.1: the builder's
// input, and — gzipped — the package's carried metadata.
type Manifest struct {
	FormatVersion string          `json:"format_version"`
	Package       PackageInfo     `json:"package"`
	Build         BuildInfo       `json:"build"`
	Slots         []ManifestSlot  `json:"slots"`
	Execution     ExecutionInfo   `json:"execution"`
}

type PackageInfo struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Description  string            `json:"description,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

type BuildInfo struct {
	Builder       string `json:"builder"`
	Timestamp     string `json:"timestamp,omitempty"`
	Deterministic bool   `json:"deterministic"`
}

// ManifestSlot is one entry of the manifest's `slots` array. Operations is
// kept as a raw interface{} because the field accepts a name, an integer,
// or a JSON array (§6.1) — ParseManifestOperations normalises it.
type ManifestSlot struct {
	Slot        *int        `json:"slot,omitempty"`
	Name        string      `json:"name"`
	Purpose     string      `json:"purpose"`
	Lifecycle   string      `json:"lifecycle"`
	Operations  interface{} `json:"operations"`
	Source      string      `json:"source"`
	ExtractTo   string      `json:"extract_to"`
	Permissions string      `json:"permissions,omitempty"`
}

type ExecutionInfo struct {
	Command     string         `json:"command"`
	Args        []string       `json:"args"`
	PrimarySlot *int           `json:"primary_slot,omitempty"`
	Runtime     RuntimeInfo    `json:"runtime"`
}

type RuntimeInfo struct {
	Env EnvPolicy `json:"env"`
}

// EnvPolicy is the `unset/pass/set/map` environment-scrubbing policy (§4.11).
type EnvPolicy struct {
	Unset []string          `json:"unset,omitempty"`
	Pass  []string          `json:"pass,omitempty"`
	Set   map[string]string `json:"set,omitempty"`
	Map   map[string]string `json:"map,omitempty"`
}

// ParseManifest decodes and validates required fields of a manifest JSON
// document, and validates + normalises each slot's operations field.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", pspferrors.ErrInvalidManifest, err)
	}
	if m.Package.Name == "" {
		return nil, fmt.Errorf("%w: package.name", pspferrors.ErrMissingField)
	}
	if m.Package.Version == "" {
		return nil, fmt.Errorf("%w: package.version", pspferrors.ErrMissingField)
	}
	if m.Execution.Command == "" {
		return nil, fmt.Errorf("%w: execution.command", pspferrors.ErrMissingField)
	}
	for i, s := range m.Slots {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: slots[%d].name", pspferrors.ErrMissingField, i)
		}
		if s.Source == "" {
			return nil, fmt.Errorf("%w: slots[%d].source", pspferrors.ErrMissingField, i)
		}
		if s.Slot != nil && *s.Slot != i {
			return nil, fmt.Errorf("%w: slot %q declared %d, table index %d", pspferrors.ErrSlotNumberMismatch, s.Name, *s.Slot, i)
		}
		if _, err := ParseManifestOperations(s.Operations); err != nil {
			return nil, fmt.Errorf("slots[%d]: %w", i, err)
		}
	}
	return &m, nil
}
