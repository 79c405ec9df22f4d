package launcher

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
)

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, info.Mode())
}

func copyDirAll(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, info.Mode()); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		srcPath := filepath.Join(src, e.Name())
		dstPath := filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := copyDirAll(srcPath, dstPath); err != nil {
				return err
			}
		} else if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

// fixShebangs rewrites any "#!oldPrefix..." first line under binDir to
// point at newPrefix, needed after slots land at a workenv path that
// differs from the path baked into a script at build time.
func fixShebangs(binDir, oldPrefix, newPrefix string, logger hclog.Logger) error {
	entries, err := os.ReadDir(binDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(binDir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil || len(content) < 2 || content[0] != '#' || content[1] != '!' {
			continue
		}

		lines := strings.SplitN(string(content), "\n", 2)
		firstLine := lines[0]
		if !strings.Contains(firstLine, oldPrefix) {
			continue
		}
		newFirstLine := strings.ReplaceAll(firstLine, oldPrefix, newPrefix)
		newContent := newFirstLine + "\n"
		if len(lines) > 1 {
			newContent = newFirstLine + "\n" + lines[1]
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if err := os.WriteFile(path, []byte(newContent), info.Mode().Perm()); err != nil {
			logger.Debug("failed to fix shebang", "script", entry.Name(), "error", err)
			continue
		}
		logger.Debug("fixed shebang", "script", entry.Name())
	}
	return nil
}
