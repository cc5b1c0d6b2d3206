package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	bderrors "github.com/soundbed/backdrop/internal/errors"
)

// DirVault is a Vault rooted at a local directory, the reference
// implementation of the host file collaborator.
type DirVault struct {
	root string
}

// NewDirVault creates a vault rooted at dir.
func NewDirVault(dir string) *DirVault {
	return &DirVault{root: dir}
}

// ReadBinary reads a track relative to the vault root. Paths escaping the
// root are rejected.
func (v *DirVault) ReadBinary(_ context.Context, path string) ([]byte, error) {
	full, err := v.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", bderrors.ErrTrackNotFound, path)
		}
		return nil, err
	}
	return data, nil
}

// Exists reports whether the path resolves to a regular file.
func (v *DirVault) Exists(path string) bool {
	full, err := v.resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

func (v *DirVault) resolve(path string) (string, error) {
	full := filepath.Join(v.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(v.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes vault root: %s", path)
	}
	return full, nil
}
