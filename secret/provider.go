package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider resolves secret references.
//
// Contract:
//   - Concurrency: Resolve must be safe for concurrent use.
//   - Never logs secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvProvider resolves a reference as an environment variable name.
type EnvProvider struct{}

// Name implements Provider.
func (EnvProvider) Name() string { return "env" }

// Resolve implements Provider.
func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, ref)
	}
	return v, nil
}

// FileProvider resolves a reference as a file path and returns the file
// content without trailing newlines. Relative paths are taken from Dir.
type FileProvider struct {
	// Dir is the base of relative references.
	// Default: the working directory
	Dir string
}

// Name implements Provider.
func (FileProvider) Name() string { return "file" }

// Resolve implements Provider.
func (p FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	path := ref
	if !filepath.IsAbs(path) && p.Dir != "" {
		path = filepath.Join(p.Dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("secret: reading %s: %w", ref, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

var (
	_ Provider = EnvProvider{}
	_ Provider = FileProvider{}
)
