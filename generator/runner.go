package generator

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

//go:embed launcher.js
var launcherScript string

// invocationEnv carries the invocation to the launcher.
const invocationEnv = "TEMPLATEGEN_INVOCATION"

// Invocation is one generator run.
type Invocation struct {
	Handle    Handle
	Arguments []string
	Options   map[string]string

	// Answers answers the generator's questions. Nil fails every
	// question without a default.
	Answers AnswerProvider

	// Dir is the working directory of the run. Generated files land here.
	Dir string
}

// Runner executes generators.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use; runs
//     with different Dir values must not affect each other.
//   - Errors: a failed run yields an error matching ErrRunFailed.
//   - Never waits for interactive input.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// NodeRunner runs yeoman generators in a child node process.
type NodeRunner struct {
	// NodePath is the node executable.
	// Default: "node" looked up on PATH
	NodePath string

	// ModuleRoots are searched for yeoman-environment and added to
	// NODE_PATH. Each is a directory containing node_modules.
	ModuleRoots []string

	// Output receives generator output. Nil discards it.
	Output io.Writer
}

type launcherInvocation struct {
	GeneratorPath string         `json:"generatorPath"`
	Namespace     string         `json:"namespace"`
	Arguments     []string       `json:"arguments"`
	Options       map[string]any `json:"options"`
	Dir           string         `json:"dir"`
	ModuleRoots   []string       `json:"moduleRoots"`
}

// Run implements Runner.
func (n *NodeRunner) Run(ctx context.Context, inv Invocation) error {
	ns := inv.Handle.ID.Namespace()
	if inv.Dir == "" {
		return fmt.Errorf("%w: %s: working directory is required", ErrRunFailed, ns)
	}

	node := n.NodePath
	if node == "" {
		node = "node"
	}
	bin, err := exec.LookPath(node)
	if err != nil {
		return fmt.Errorf("%w: %s: node is not available: %v", ErrRunFailed, ns, err)
	}

	payload, err := json.Marshal(launcherInvocation{
		GeneratorPath: inv.Handle.Path,
		Namespace:     ns,
		Arguments:     nonNilArgs(inv.Arguments),
		Options:       launcherOptions(inv.Options),
		Dir:           inv.Dir,
		ModuleRoots:   n.ModuleRoots,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: encoding invocation: %v", ErrRunFailed, ns, err)
	}

	answers := inv.Answers
	if answers == nil {
		answers = StaticAnswers(nil)
	}
	out := n.Output
	if out == nil {
		out = io.Discard
	}

	cmd := exec.CommandContext(ctx, bin, "-e", launcherScript)
	cmd.Dir = inv.Dir
	cmd.Env = n.buildEnv(payload)

	var stderr bytes.Buffer
	cmd.Stderr = io.MultiWriter(out, &stderr)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRunFailed, ns, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRunFailed, ns, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s: starting node: %v", ErrRunFailed, ns, err)
	}

	serveErr := ServePrompts(stdout, stdin, answers, out)
	_ = stdin.Close()
	if serveErr != nil {
		// Unblock a child still writing so Wait can return.
		_, _ = io.Copy(io.Discard, stdout)
	}
	waitErr := cmd.Wait()

	if waitErr != nil {
		return fmt.Errorf("%w: %s: %v: %s", ErrRunFailed, ns, waitErr, tail(stderr.String(), 1024))
	}
	if serveErr != nil {
		return fmt.Errorf("%w: %s: %v", ErrRunFailed, ns, serveErr)
	}
	return nil
}

func (n *NodeRunner) buildEnv(payload []byte) []string {
	env := os.Environ()
	env = setEnv(env, invocationEnv, string(payload))

	if len(n.ModuleRoots) > 0 {
		paths := make([]string, 0, len(n.ModuleRoots)+1)
		for _, root := range n.ModuleRoots {
			paths = append(paths, filepath.Join(root, "node_modules"))
		}
		if existing := os.Getenv("NODE_PATH"); existing != "" {
			paths = append(paths, existing)
		}
		env = setEnv(env, "NODE_PATH", strings.Join(paths, string(os.PathListSeparator)))
	}
	return env
}

// launcherOptions copies options and forces skip-install so the generator
// never runs its own package install.
func launcherOptions(options map[string]string) map[string]any {
	out := make(map[string]any, len(options)+1)
	for k, v := range options {
		out[k] = v
	}
	out["skip-install"] = true
	return out
}

func nonNilArgs(args []string) []string {
	if args == nil {
		return []string{}
	}
	return args
}

// Ensure NodeRunner implements Runner
var _ Runner = (*NodeRunner)(nil)
