package llm

import (
	"os"
	"strings"
)

// KeySource yields a candidate credential.
type KeySource func() string

// EnvKey reads a credential from an environment variable.
func EnvKey(name string) KeySource {
	return func() string { return os.Getenv(name) }
}

// FileKey reads a credential from the file named by an environment variable,
// for mounted secrets.
func FileKey(envName string) KeySource {
	return func() string {
		path := strings.TrimSpace(os.Getenv(envName))
		if path == "" {
			return ""
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// ResolveAPIKey returns the first usable credential from sources.
func ResolveAPIKey(sources ...KeySource) (string, error) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		if key := strings.TrimSpace(src()); usableKey(key) {
			return key, nil
		}
	}
	return "", ErrMissingAPIKey
}

func usableKey(key string) bool {
	if key == "" || strings.ContainsAny(key, " \t\n") {
		return false
	}
	switch strings.ToLower(key) {
	case "changeme", "your-api-key", "your_api_key", "your-openai-api-key", "undefined", "null":
		return false
	}
	return true
}
