//go:build windows

package launcher

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/hashicorp/go-hclog"
	"github.com/pspf/flavorpack/pkg/pspf/format"
	"golang.org/x/sys/windows"
)

const (
	peResourceName = "PSPF"
)

// packagePath returns the path Reader should open: exePath itself unless a
// PE resource holds the package, in which case the launcher's own bytes are
// reassembled with the resource's payload into a temp file (this format's
// reader is file-based, not byte-slice based, and every offset in the index
// is relative to the launcher+payload concatenation, so the two must be
// rejoined before Reader can make sense of them).
func packagePath(exePath string, logger hclog.Logger) (string, func(), error) {
	pkgData, err := readPEResource(exePath, logger)
	if err != nil {
		logger.Debug("no PE resource found, reading package from file tail", "error", err)
		return exePath, func() {}, nil
	}
	if len(pkgData) < format.MagicTrailerSize {
		return "", nil, fmt.Errorf("PE resource payload too small to hold a trailer")
	}

	idx := &format.Index{}
	if err := idx.Unpack(pkgData[len(pkgData)-format.MagicTrailerSize : len(pkgData)-format.MagicFooterSize]); err != nil {
		return "", nil, fmt.Errorf("unpacking index from PE resource: %w", err)
	}

	launcherBytes := make([]byte, idx.LauncherSize)
	exeFile, err := os.Open(exePath)
	if err != nil {
		return "", nil, fmt.Errorf("reopening launcher for reconstruction: %w", err)
	}
	_, err = exeFile.ReadAt(launcherBytes, 0)
	exeFile.Close()
	if err != nil {
		return "", nil, fmt.Errorf("reading launcher prefix: %w", err)
	}

	tmp, err := os.CreateTemp("", "pspf-package-*.bin")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file for reconstructed package: %w", err)
	}
	if _, err := tmp.Write(launcherBytes); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("writing launcher prefix to temp file: %w", err)
	}
	if _, err := tmp.Write(pkgData); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("writing PE resource payload to temp file: %w", err)
	}
	tmp.Close()

	cleanup := func() { os.Remove(tmp.Name()) }
	return tmp.Name(), cleanup, nil
}

func readPEResource(exePath string, logger hclog.Logger) ([]byte, error) {
	handle, err := windows.LoadLibraryEx(exePath, 0, windows.LOAD_LIBRARY_AS_DATAFILE)
	if err != nil {
		return nil, fmt.Errorf("loading exe as data file: %w", err)
	}
	defer windows.FreeLibrary(handle)

	resInfo, err := windows.FindResource(handle, windows.StringToUTF16Ptr(peResourceName), windows.RT_RCDATA)
	if err != nil {
		return nil, fmt.Errorf("PSPF resource not found: %w", err)
	}
	resData, err := windows.LoadResource(handle, resInfo)
	if err != nil {
		return nil, fmt.Errorf("loading resource data: %w", err)
	}
	size, err := windows.SizeofResource(handle, resInfo)
	if err != nil {
		return nil, fmt.Errorf("getting resource size: %w", err)
	}
	ptr, err := windows.LockResource(resData)
	if err != nil {
		return nil, fmt.Errorf("locking resource: %w", err)
	}

	slice := (*[1 << 30]byte)(unsafe.Pointer(ptr))[:size:size]
	out := make([]byte, size)
	copy(out, slice)
	logger.Debug("read package from PE resource", "size", size)
	return out, nil
}
