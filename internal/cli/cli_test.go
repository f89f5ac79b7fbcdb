package cli

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/templategen/auth"
	"github.com/jonwraymond/templategen/cache"
	"github.com/jonwraymond/templategen/config"
)

// run executes the command line in a scratch directory with the store
// under it.
func run(t *testing.T, storeDir string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("TEMPLATEGEN_STORE_DIR", storeDir)
	t.Setenv("TEMPLATEGEN_OBSERVE_METRICS_EXPORTER", "none")

	cmd := NewRootCommand("1.2.3")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func publish(t *testing.T, dir string, req cache.Request, modTime time.Time) cache.Key {
	t.Helper()
	store, err := cache.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	key, err := cache.BuildKey(req)
	if err != nil {
		t.Fatal(err)
	}
	p, err := store.Create(key)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(store.Path(key), modTime, modTime); err != nil {
		t.Fatal(err)
	}
	return key
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, t.TempDir(), "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if strings.TrimSpace(out) != "templategen 1.2.3" {
		t.Errorf("output = %q", out)
	}
}

func TestKeyCommand(t *testing.T) {
	out, err := run(t, t.TempDir(), "key", "generator-node:app", "-o", "skip-git=true", "-a", "name=demo")
	if err != nil {
		t.Fatalf("key error = %v", err)
	}
	want, _ := cache.BuildKey(cache.NewRequest("generator-node:app",
		map[string]string{"skip-git": "true"}, map[string]string{"name": "demo"}, nil))
	if strings.TrimSpace(out) != want.String() {
		t.Errorf("key = %q, want %q", out, want)
	}
}

func TestKeyCommand_ValuesKeepCommas(t *testing.T) {
	out, err := run(t, t.TempDir(), "key", "generator-node",
		"-a", "description=a, b", "-a", "features=lint,test", "-o", "eq=x=y")
	if err != nil {
		t.Fatalf("key error = %v", err)
	}
	want, _ := cache.BuildKey(cache.NewRequest("generator-node",
		map[string]string{"eq": "x=y"},
		map[string]string{"description": "a, b", "features": "lint,test"}, nil))
	if strings.TrimSpace(out) != want.String() {
		t.Errorf("key = %q, want %q", out, want)
	}

	for _, bad := range []string{"novalue", "=x"} {
		if _, err := run(t, t.TempDir(), "key", "generator-node", "-a", bad); err == nil {
			t.Errorf("key -a %q should fail", bad)
		}
	}
}

func TestStatusCommand(t *testing.T) {
	store := t.TempDir()
	req := cache.NewRequest("generator-node", nil, map[string]string{"name": "demo"}, nil)

	out, err := run(t, store, "status", "generator-node", "-a", "name=demo")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if !strings.Contains(out, " absent") {
		t.Errorf("output = %q, want absent", out)
	}

	key := publish(t, store, req, time.Now())
	out, err = run(t, store, "status", "--key", key.String(), "--json")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if !strings.Contains(out, `"status": "present"`) || !strings.Contains(out, key.String()+".zip") {
		t.Errorf("output = %q, want present with location", out)
	}

	if _, err := run(t, store, "status", "--key", "nope"); err == nil {
		t.Error("status --key with a malformed key should fail")
	}
}

func TestPruneCommand(t *testing.T) {
	store := t.TempDir()
	old := publish(t, store, cache.NewRequest("old", nil, nil, nil), time.Now().Add(-72*time.Hour))
	fresh := publish(t, store, cache.NewRequest("fresh", nil, nil, nil), time.Now())

	out, err := run(t, store, "prune", "--max-age", "24h", "--dry-run")
	if err != nil {
		t.Fatalf("prune --dry-run error = %v", err)
	}
	if !strings.Contains(out, "would evict "+old.String()) {
		t.Errorf("dry run output = %q", out)
	}

	out, err = run(t, store, "prune", "--max-age", "24h")
	if err != nil {
		t.Fatalf("prune error = %v", err)
	}
	if !strings.Contains(out, "evicted "+old.String()) {
		t.Errorf("output = %q", out)
	}

	fs, _ := cache.NewFileStore(store)
	if fs.Exists(old) {
		t.Error("old archive still present")
	}
	if !fs.Exists(fresh) {
		t.Error("fresh archive evicted")
	}
}

func TestPruneCommand_Unbounded(t *testing.T) {
	if _, err := run(t, t.TempDir(), "prune", "--max-age", "0"); err == nil {
		t.Error("prune with unbounded retention should fail")
	}
}

func TestNewAuthenticator(t *testing.T) {
	a, err := newAuthenticator(config.AuthConfig{})
	if err != nil || a != nil {
		t.Fatalf("newAuthenticator(empty) = (%v, %v), want (nil, nil)", a, err)
	}

	a, err = newAuthenticator(config.AuthConfig{APIKeys: []string{"k1"}, JWTKey: "hmac-key"})
	if err != nil {
		t.Fatalf("newAuthenticator() error = %v", err)
	}
	id, err := a.Authenticate(context.Background(), http.Header{http.CanonicalHeaderKey(auth.APIKeyHeader): {"k1"}})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id.Method != auth.MethodAPIKey {
		t.Errorf("Method = %q, want api key", id.Method)
	}
	if _, err := a.Authenticate(context.Background(), http.Header{}); err == nil {
		t.Error("Authenticate() without credentials should fail")
	}
}

func TestNewHTTPServer_RequestsSurviveSignal(t *testing.T) {
	type ctxKey struct{}
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "v"))
	srv := newHTTPServer(ctx, ":0", http.NotFoundHandler())
	cancel()

	base := srv.BaseContext(nil)
	if err := base.Err(); err != nil {
		t.Errorf("base context error = %v after the signal context ended, want nil", err)
	}
	if base.Value(ctxKey{}) != "v" {
		t.Error("base context lost the signal context's values")
	}
}
