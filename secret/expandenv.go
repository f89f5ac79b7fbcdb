package secret

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands $VAR and ${VAR} in s. A ${VAR} whose variable is
// unset fails with ErrMissingEnv naming every missing variable. "$$"
// yields a literal "$".
func ExpandEnvStrict(s string) (string, error) {
	const dollar = "\x00TEMPLATEGEN_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollar)

	var missing []string
	seen := make(map[string]bool)
	for _, m := range envVarPattern.FindAllStringSubmatch(s, -1) {
		name := m[1]
		if _, ok := os.LookupEnv(name); !ok && !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	return strings.ReplaceAll(os.ExpandEnv(s), dollar, "$"), nil
}
