package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Handle is a resolved, runnable generator.
type Handle struct {
	ID ID

	// Path is the sub-generator module directory.
	Path string

	// PackageDir is the package root inside node_modules.
	PackageDir string

	// Version is the installed package version, if known.
	Version string
}

// Finder locates installed generator modules.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: an absent module (or one whose version the id does not allow)
//     yields an error matching ErrModuleNotFound; any other failure is
//     returned as is.
type Finder interface {
	Find(id ID) (Handle, error)
}

// NodeModulesFinder looks for {root}/node_modules/{package}/generators/{sub}
// in each root, in order.
type NodeModulesFinder struct {
	Roots []string
}

// NewNodeModulesFinder creates a finder over the given roots.
func NewNodeModulesFinder(roots ...string) *NodeModulesFinder {
	return &NodeModulesFinder{Roots: roots}
}

// Find implements Finder.
func (f *NodeModulesFinder) Find(id ID) (Handle, error) {
	var rejected []string
	for _, root := range f.Roots {
		pkgDir := filepath.Join(root, "node_modules", filepath.FromSlash(id.Package))
		genDir := filepath.Join(pkgDir, "generators", id.Sub)

		info, err := os.Stat(genDir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			return Handle{}, fmt.Errorf("generator: resolving %s: %w", id, err)
		case !info.IsDir():
			continue
		}

		version, err := readPackageVersion(pkgDir)
		if err != nil {
			return Handle{}, fmt.Errorf("generator: resolving %s: %w", id, err)
		}
		if !id.Allows(version) {
			rejected = append(rejected, version)
			continue
		}
		return Handle{ID: id, Path: genDir, PackageDir: pkgDir, Version: version}, nil
	}

	if len(rejected) > 0 {
		return Handle{}, fmt.Errorf("%w: %s (installed versions %v do not satisfy %s)",
			ErrModuleNotFound, id, rejected, id.Constraint)
	}
	return Handle{}, fmt.Errorf("%w: %s", ErrModuleNotFound, id)
}

func readPackageVersion(pkgDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var manifest struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return "", fmt.Errorf("parsing %s/package.json: %w", pkgDir, err)
	}
	return manifest.Version, nil
}

// Ensure NodeModulesFinder implements Finder
var _ Finder = (*NodeModulesFinder)(nil)
