package generator

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestLauncherOptions_ForcesSkipInstall(t *testing.T) {
	opts := launcherOptions(map[string]string{"skip-install": "false", "name": "x"})

	if opts["skip-install"] != true {
		t.Errorf("skip-install = %v, want true", opts["skip-install"])
	}
	if opts["name"] != "x" {
		t.Errorf("name = %v, want x", opts["name"])
	}
	if got := launcherOptions(nil); got["skip-install"] != true {
		t.Error("skip-install must be set for nil options")
	}
}

func TestNodeRunner_RequiresDir(t *testing.T) {
	r := &NodeRunner{}
	err := r.Run(context.Background(), Invocation{Handle: Handle{ID: MustParseID("gen")}})
	if !errors.Is(err, ErrRunFailed) {
		t.Errorf("Run() error = %v, want ErrRunFailed", err)
	}
}

func TestNodeRunner_MissingNode(t *testing.T) {
	r := &NodeRunner{NodePath: filepath.Join(t.TempDir(), "no-node")}
	err := r.Run(context.Background(), Invocation{Handle: Handle{ID: MustParseID("gen")}, Dir: t.TempDir()})
	if !errors.Is(err, ErrRunFailed) {
		t.Errorf("Run() error = %v, want ErrRunFailed", err)
	}
}

func TestNodeRunner_BuildEnv(t *testing.T) {
	t.Setenv("NODE_PATH", "/existing")
	r := &NodeRunner{ModuleRoots: []string{"/a", "/b"}}

	env := r.buildEnv([]byte(`{"x":1}`))

	var nodePath, payload string
	for _, e := range env {
		if v, ok := strings.CutPrefix(e, "NODE_PATH="); ok {
			nodePath = v
		}
		if v, ok := strings.CutPrefix(e, invocationEnv+"="); ok {
			payload = v
		}
	}
	sep := string(os.PathListSeparator)
	want := filepath.Join("/a", "node_modules") + sep + filepath.Join("/b", "node_modules") + sep + "/existing"
	if nodePath != want {
		t.Errorf("NODE_PATH = %q, want %q", nodePath, want)
	}
	if payload != `{"x":1}` {
		t.Errorf("invocation = %q", payload)
	}
}

// A generator that asks a question with no answer must fail the run
// rather than block.
func TestNodeRunner_UnansweredQuestionFails(t *testing.T) {
	if _, err := exec.LookPath("node"); err != nil {
		t.Skip("node not available")
	}
	// Stand-in for yeoman-environment: one prompt, then writes a file.
	root, genDir := writeYeomanStub(t, `module.exports.createEnv = (args, opts, adapter) => ({
  register() {},
  async run() {
    const a = await adapter.prompt([{type: 'input', name: 'name'}]);
    require('fs').writeFileSync(require('path').join(opts.cwd, 'out.txt'), a.name);
  },
});
`)

	r := &NodeRunner{ModuleRoots: []string{root}}
	inv := Invocation{
		Handle: Handle{ID: MustParseID("gen"), Path: genDir},
		Dir:    t.TempDir(),
	}

	err := r.Run(context.Background(), inv)
	if !errors.Is(err, ErrRunFailed) {
		t.Fatalf("Run() without answers error = %v, want ErrRunFailed", err)
	}

	inv.Answers = StaticAnswers{"name": "demo"}
	if err := r.Run(context.Background(), inv); err != nil {
		t.Fatalf("Run() with answers error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(inv.Dir, "out.txt"))
	if err != nil {
		t.Fatalf("generated file missing: %v", err)
	}
	if string(data) != "demo" {
		t.Errorf("generated content = %q, want demo", data)
	}
}

// writeYeomanStub installs stub as yeoman-environment under a fresh root
// and returns the root and an empty generator directory.
func writeYeomanStub(t *testing.T, stub string) (root, genDir string) {
	t.Helper()
	root = t.TempDir()
	yeomanDir := filepath.Join(root, "node_modules", "yeoman-environment")
	if err := os.MkdirAll(yeomanDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(yeomanDir, "index.js"), []byte(stub), 0o644); err != nil {
		t.Fatal(err)
	}
	genDir = filepath.Join(root, "gen")
	if err := os.MkdirAll(genDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(genDir, "index.js"), []byte("module.exports = {};\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root, genDir
}

// Questions whose when condition rejects the earlier answers are skipped,
// so they need neither an answer nor a default.
func TestNodeRunner_ConditionalQuestionSkipped(t *testing.T) {
	if _, err := exec.LookPath("node"); err != nil {
		t.Skip("node not available")
	}
	root, genDir := writeYeomanStub(t, `module.exports.createEnv = (args, opts, adapter) => ({
  register() {},
  async run() {
    const a = await adapter.prompt([
      {type: 'input', name: 'kind'},
      {type: 'input', name: 'port', when: (answers) => answers.kind === 'server'},
    ]);
    require('fs').writeFileSync(require('path').join(opts.cwd, 'out.txt'), a.kind + ':' + String(a.port));
  },
});
`)
	r := &NodeRunner{ModuleRoots: []string{root}}

	tests := []struct {
		name    string
		answers StaticAnswers
		want    string
		wantErr bool
	}{
		{name: "condition false", answers: StaticAnswers{"kind": "cli"}, want: "cli:undefined"},
		{name: "condition true", answers: StaticAnswers{"kind": "server", "port": "8080"}, want: "server:8080"},
		{name: "condition true without answer", answers: StaticAnswers{"kind": "server"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := Invocation{
				Handle:  Handle{ID: MustParseID("gen"), Path: genDir},
				Answers: tt.answers,
				Dir:     t.TempDir(),
			}
			err := r.Run(context.Background(), inv)
			if tt.wantErr {
				if !errors.Is(err, ErrRunFailed) {
					t.Fatalf("Run() error = %v, want ErrRunFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			data, err := os.ReadFile(filepath.Join(inv.Dir, "out.txt"))
			if err != nil {
				t.Fatalf("generated file missing: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("generated content = %q, want %q", data, tt.want)
			}
		})
	}
}
