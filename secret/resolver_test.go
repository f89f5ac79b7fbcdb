package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type stubProvider struct {
	name   string
	values map[string]string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	return s.values[ref], nil
}

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		ref      string
		ok       bool
	}{
		{"secretref:env:NPM_TOKEN", "env", "NPM_TOKEN", true},
		{"secretref:file:/run/secrets/jwt:key", "file", "/run/secrets/jwt:key", true},
		{"secretref:env:", "", "", false},
		{"secretref::x", "", "", false},
		{"plain", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, r, ok := ParseSecretRef(tt.in)
			if ok != tt.ok || p != tt.provider || r != tt.ref {
				t.Errorf("ParseSecretRef(%q) = (%q, %q, %v)", tt.in, p, r, ok)
			}
		})
	}
}

func TestResolver_FullAndInline(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"a": "one", "b": "two"}})

	got, err := r.ResolveValue(context.Background(), "secretref:stub:a")
	if err != nil || got != "one" {
		t.Errorf("full ref = (%q, %v), want one", got, err)
	}

	got, err = r.ResolveValue(context.Background(), "Bearer secretref:stub:b and secretref:stub:a")
	if err != nil || got != "Bearer two and one" {
		t.Errorf("inline refs = (%q, %v)", got, err)
	}

	got, err = r.ResolveValue(context.Background(), "literal")
	if err != nil || got != "literal" {
		t.Errorf("literal = (%q, %v)", got, err)
	}
}

func TestResolver_Errors(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"empty": ""}})

	tests := []struct {
		value string
		want  error
	}{
		{"secretref:stub:empty", ErrEmptySecret},
		{"secretref:vault:x", ErrUnknownProvider},
		{"secretref:stub", ErrInvalidRef},
		{"${TEMPLATEGEN_TEST_SURELY_UNSET}", ErrMissingEnv},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if _, err := r.ResolveValue(context.Background(), tt.value); !errors.Is(err, tt.want) {
				t.Errorf("ResolveValue(%q) error = %v, want %v", tt.value, err, tt.want)
			}
		})
	}
}

func TestResolver_NonStrictAllowsEmpty(t *testing.T) {
	r := NewResolver(false, &stubProvider{name: "stub"})
	if got, err := r.ResolveValue(context.Background(), "secretref:stub:x"); err != nil || got != "" {
		t.Errorf("ResolveValue() = (%q, %v)", got, err)
	}
}

func TestDefaultResolver_Providers(t *testing.T) {
	t.Setenv("TEMPLATEGEN_TEST_TOKEN", "npm_abc")
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "jwt_key")
	if err := os.WriteFile(keyFile, []byte("s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	r := NewDefaultResolver()
	got, err := r.ResolveSlice(context.Background(), []string{
		"secretref:env:TEMPLATEGEN_TEST_TOKEN",
		"secretref:file:" + keyFile,
		"${TEMPLATEGEN_TEST_TOKEN}",
	})
	if err != nil {
		t.Fatalf("ResolveSlice() error = %v", err)
	}
	want := []string{"npm_abc", "s3cret", "npm_abc"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d = %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := r.ResolveValue(context.Background(), "secretref:env:TEMPLATEGEN_TEST_SURELY_UNSET"); !errors.Is(err, ErrMissingEnv) {
		t.Errorf("unset env ref error = %v, want ErrMissingEnv", err)
	}
}

func TestFileProvider_RelativeDir(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "token"), []byte("abc"), 0o600)

	got, err := FileProvider{Dir: dir}.Resolve(context.Background(), "token")
	if err != nil || got != "abc" {
		t.Errorf("Resolve() = (%q, %v)", got, err)
	}
}
