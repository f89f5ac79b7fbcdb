package generator

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DefaultSub is the sub-generator used when an id names none.
const DefaultSub = "app"

// ID identifies one sub-generator of an npm package.
type ID struct {
	// Package is the npm package name, possibly scoped.
	Package string

	// Constraint optionally restricts the installed package version.
	Constraint string

	// Sub is the sub-generator directory under generators/.
	Sub string

	constraint *semver.Constraints
}

// ParseID parses "package[@constraint][:sub]".
func ParseID(s string) (ID, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return ID{}, fmt.Errorf("%w: empty", ErrInvalidID)
	}

	id := ID{Sub: DefaultSub}
	rest := raw
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		id.Sub = rest[i+1:]
		rest = rest[:i]
		if id.Sub == "" {
			return ID{}, fmt.Errorf("%w: %q has an empty sub-generator", ErrInvalidID, raw)
		}
	}

	// A leading "@" belongs to the scope.
	if i := strings.LastIndex(rest, "@"); i > 0 {
		id.Constraint = rest[i+1:]
		rest = rest[:i]
		c, err := semver.NewConstraint(id.Constraint)
		if err != nil {
			return ID{}, fmt.Errorf("%w: %q: version constraint: %v", ErrInvalidID, raw, err)
		}
		id.constraint = c
	}
	id.Package = rest

	if err := validatePackage(id.Package); err != nil {
		return ID{}, fmt.Errorf("%w: %q: %v", ErrInvalidID, raw, err)
	}
	if err := validateSegment(id.Sub); err != nil {
		return ID{}, fmt.Errorf("%w: %q: sub-generator: %v", ErrInvalidID, raw, err)
	}
	return id, nil
}

// MustParseID is like ParseID but panics on error.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Namespace returns "package:sub", the name the generator is registered
// under when it runs.
func (id ID) Namespace() string {
	return id.Package + ":" + id.Sub
}

// InstallSpec returns the package argument for npm install.
func (id ID) InstallSpec() string {
	if id.Constraint == "" {
		return id.Package
	}
	return id.Package + "@" + id.Constraint
}

// Allows reports whether version satisfies the id's constraint. Any version
// is allowed when there is no constraint.
func (id ID) Allows(version string) bool {
	if id.constraint == nil {
		return true
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return id.constraint.Check(v)
}

func (id ID) String() string {
	if id.Constraint == "" {
		return id.Namespace()
	}
	return id.Package + "@" + id.Constraint + ":" + id.Sub
}

func validatePackage(name string) error {
	if name == "" {
		return fmt.Errorf("empty package name")
	}
	parts := strings.Split(name, "/")
	switch {
	case strings.HasPrefix(name, "@"):
		if len(parts) != 2 || len(parts[0]) < 2 {
			return fmt.Errorf("scoped package must be @scope/name")
		}
		if err := validateSegment(parts[0][1:]); err != nil {
			return err
		}
		return validateSegment(parts[1])
	case len(parts) != 1:
		return fmt.Errorf("unscoped package must not contain '/'")
	default:
		return validateSegment(name)
	}
}

func validateSegment(s string) error {
	if s == "" || s == "." || s == ".." {
		return fmt.Errorf("invalid name %q", s)
	}
	if strings.ContainsAny(s, "/\\ \t\r\n@:") {
		return fmt.Errorf("invalid character in %q", s)
	}
	return nil
}
