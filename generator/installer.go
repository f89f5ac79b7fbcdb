package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// Installer installs generator packages on demand.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a failed install yields an error matching ErrInstallFailed.
type Installer interface {
	Install(ctx context.Context, id ID) error
}

// DefaultRegistry is the public npm registry.
const DefaultRegistry = "https://registry.npmjs.org/"

// npmTokenEnv carries the registry token to npm without writing it to disk.
const npmTokenEnv = "TEMPLATEGEN_NPM_TOKEN"

// installLockFile serializes installs into one prefix across processes.
const installLockFile = ".install.lock"

const installLockPoll = 100 * time.Millisecond

// NpmInstaller runs `npm install` into Prefix. Installs into the same
// prefix never overlap, in this or any other process; an install that
// waited finds the package already present and does nothing.
type NpmInstaller struct {
	// Prefix is the directory whose node_modules receives the package.
	Prefix string

	// NpmPath is the npm executable.
	// Default: "npm" looked up on PATH
	NpmPath string

	// Registry overrides the npm registry URL.
	Registry string

	// Token authenticates against Registry.
	Token string

	// Output receives npm's combined output. Nil discards it.
	Output io.Writer
}

// InstallError describes a failed npm install.
type InstallError struct {
	Package  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *InstallError) Error() string {
	msg := fmt.Sprintf("generator: npm install %s failed", e.Package)
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InstallError) Unwrap() error { return e.Err }

// Is reports ErrInstallFailed.
func (e *InstallError) Is(target error) bool { return target == ErrInstallFailed }

// Install implements Installer.
func (n *NpmInstaller) Install(ctx context.Context, id ID) error {
	spec := id.InstallSpec()

	npm := n.NpmPath
	if npm == "" {
		npm = "npm"
	}
	bin, err := exec.LookPath(npm)
	if err != nil {
		return &InstallError{Package: spec, Err: fmt.Errorf("npm is not available: %w", err)}
	}
	if err := os.MkdirAll(n.Prefix, 0o755); err != nil {
		return &InstallError{Package: spec, Err: err}
	}

	lock := flock.New(filepath.Join(n.Prefix, installLockFile))
	if _, err := lock.TryLockContext(ctx, installLockPoll); err != nil {
		return &InstallError{Package: spec, Err: fmt.Errorf("locking install prefix: %w", err)}
	}
	defer func() { _ = lock.Unlock() }()

	if _, err := NewNodeModulesFinder(n.Prefix).Find(id); err == nil {
		return nil
	}

	args := []string{"install", "--no-audit", "--no-fund", "--prefix", n.Prefix}
	env := os.Environ()

	registry := n.Registry
	if registry != "" {
		args = append(args, "--registry", registry)
	}
	if n.Token != "" {
		if registry == "" {
			registry = DefaultRegistry
		}
		userconfig, cleanup, err := writeNpmrc(registry)
		if err != nil {
			return &InstallError{Package: spec, Err: err}
		}
		defer cleanup()
		args = append(args, "--userconfig", userconfig)
		env = setEnv(env, npmTokenEnv, n.Token)
	}
	args = append(args, spec)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = n.Prefix
	cmd.Env = env

	var stderr bytes.Buffer
	out := n.Output
	if out == nil {
		out = io.Discard
	}
	cmd.Stdout = out
	cmd.Stderr = io.MultiWriter(out, &stderr)

	if err := cmd.Run(); err != nil {
		ie := &InstallError{Package: spec, Stderr: tail(stderr.String(), 512), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			ie.ExitCode = exitErr.ExitCode()
		}
		return ie
	}
	return nil
}

// writeNpmrc writes a user config that reads the auth token from the
// environment, so the token itself never touches disk.
func writeNpmrc(registry string) (string, func(), error) {
	u, err := url.Parse(registry)
	if err != nil || u.Host == "" {
		return "", nil, fmt.Errorf("invalid registry URL %q", registry)
	}
	path := strings.TrimSuffix(u.Path, "/") + "/"

	f, err := os.CreateTemp("", "templategen-npmrc-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	line := fmt.Sprintf("//%s%s:_authToken=${%s}\n", u.Host, path, npmTokenEnv)
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}

// Ensure NpmInstaller implements Installer
var _ Installer = (*NpmInstaller)(nil)
