//go:build windows

package builder

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/tc-hib/winres"
)

const (
	peResourceType = winres.RT_RCDATA
	peResourceName = "PSPF"
	peResourceLang = 0x0409 // en-US
)

// embedAsPEResource embeds pkgData into exePath's PE resource section under
// RT_RCDATA/"PSPF", replacing exePath atomically. Go binaries on Windows are
// signed/checked in ways that reject arbitrary appended trailers, so on this
// platform the package rides inside the executable's own resource table
// instead of past its EOF (§4.7's resolved Windows path).
func embedAsPEResource(exePath string, pkgData []byte, logger hclog.Logger) error {
	logger.Info("embedding package as PE resource", "exe", exePath, "size", len(pkgData))

	in, err := os.Open(exePath)
	if err != nil {
		return fmt.Errorf("opening exe for resource read: %w", err)
	}
	rs, err := winres.LoadFromEXE(in)
	if err != nil {
		logger.Debug("no existing resources, starting a fresh set")
		rs = &winres.ResourceSet{}
	}
	if err := in.Close(); err != nil {
		return fmt.Errorf("closing exe after resource read: %w", err)
	}

	if err := rs.Set(peResourceType, winres.Name(peResourceName), peResourceLang, pkgData); err != nil {
		return fmt.Errorf("setting PSPF resource: %w", err)
	}

	in2, err := os.Open(exePath)
	if err != nil {
		return fmt.Errorf("reopening exe for resource write: %w", err)
	}
	tmpPath := exePath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		in2.Close()
		return fmt.Errorf("creating temp exe: %w", err)
	}
	if err := rs.WriteToEXE(out, in2); err != nil {
		out.Close()
		in2.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing resources into exe: %w", err)
	}
	if err := out.Close(); err != nil {
		in2.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp exe: %w", err)
	}
	if err := in2.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing source exe: %w", err)
	}

	if err := atomicReplace(tmpPath, exePath, logger); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing exe with resource-embedded copy: %w", err)
	}

	logger.Info("package embedded as PE resource", "exe", exePath)
	return nil
}
