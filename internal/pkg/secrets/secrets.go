// Package secrets resolves credentials from an external secret manager with
// an environment-variable fallback chain.
package secrets

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Resolver looks up a secret by reference.
type Resolver interface {
	Resolve(reference string) (string, error)
}

// OpResolver reads secrets through the 1Password CLI ("op read <ref>"). On
// any failure it falls back to an environment variable derived from the
// reference's last path segment (uppercased, spaces replaced with
// underscores), e.g. "op://vault/item/global api key" -> GLOBAL_API_KEY.
type OpResolver struct {
	// Command overrides the binary name, used by tests.
	Command string
}

// Resolve implements Resolver.
func (r *OpResolver) Resolve(reference string) (string, error) {
	cmd := r.Command
	if cmd == "" {
		cmd = "op"
	}

	out, err := exec.Command(cmd, "read", reference).Output()
	if err == nil {
		return strings.TrimSpace(string(out)), nil
	}

	if v := os.Getenv(EnvKey(reference)); v != "" {
		return v, nil
	}

	return "", fmt.Errorf("secret %q not found in secret manager or environment", reference)
}

// EnvKey derives the fallback environment variable name from a secret
// reference.
func EnvKey(reference string) string {
	parts := strings.Split(reference, "/")
	last := parts[len(parts)-1]
	return strings.ToUpper(strings.ReplaceAll(last, " ", "_"))
}

// Static resolves secrets from a fixed map, used as a test double.
type Static map[string]string

// Resolve implements Resolver.
func (s Static) Resolve(reference string) (string, error) {
	if v, ok := s[reference]; ok {
		return v, nil
	}
	return "", fmt.Errorf("secret %q not found", reference)
}
