package secret

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

const refPrefix = "secretref:"

// Resolver expands environment references and resolves secret references.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a Resolver over providers. A strict Resolver rejects
// empty secret values.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider), strict: strict}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// NewDefaultResolver returns a strict Resolver with the env and file
// providers.
func NewDefaultResolver() *Resolver {
	return NewResolver(true, EnvProvider{}, FileProvider{})
}

// ResolveValue expands value and resolves the secret references in it.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(expanded, refPrefix) {
		provider, ref, ok := ParseSecretRef(expanded)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrInvalidRef, expanded)
		}
		return r.resolve(ctx, provider, ref)
	}
	return r.resolveInline(ctx, expanded)
}

// ResolveSlice resolves every value.
func (r *Resolver) ResolveSlice(ctx context.Context, values []string) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

// ParseSecretRef splits "secretref:<provider>:<ref>".
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

func (r *Resolver) resolve(ctx context.Context, providerName, ref string) (string, error) {
	p, ok := r.providers[providerName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, providerName)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("%w: %s:%s", ErrEmptySecret, providerName, ref)
	}
	return v, nil
}

var inlineRefPattern = regexp.MustCompile(`secretref:([^:\s]+):(\S+)`)

func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	matches := inlineRefPattern.FindAllStringSubmatchIndex(value, -1)

	// Replace from the end so earlier indexes stay valid.
	out := value
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		resolved, err := r.resolve(ctx, out[m[2]:m[3]], out[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		out = out[:m[0]] + resolved + out[m[1]:]
	}
	return out, nil
}
