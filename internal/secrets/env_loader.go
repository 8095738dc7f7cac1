package secrets

import (
	"fmt"
	"os"
	"strings"
)

// EnvLoader reads the named variables. NAME_FILE, when set, names a file
// whose trimmed contents are used instead, which is how container
// orchestrators mount secrets. Unset names are left out of the result.
func EnvLoader(names ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(names))
		for _, name := range names {
			if path := os.Getenv(name + "_FILE"); path != "" {
				b, err := os.ReadFile(path) //nolint:gosec // path comes from the operator's environment
				if err != nil {
					return nil, fmt.Errorf("read %s_FILE: %w", name, err)
				}
				if v := strings.TrimSpace(string(b)); v != "" {
					vals[name] = v
				}
				continue
			}
			if v := os.Getenv(name); v != "" {
				vals[name] = v
			}
		}
		return vals, nil
	}
}
