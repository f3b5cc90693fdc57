// Package envkey resolves provider API keys the way the original hyni
// chat_api did: a provider-specific environment variable first, then a
// KEY=VALUE file at $HOME/.hynirc. Values a .env file contributes through
// LoadDotenv become process environment variables, so they are found by
// the first step, ahead of $HOME/.hynirc. It is a convenience
// collaborator for applications wiring a chatctx.Context together — the
// core itself never calls this package; see chatctx.Context.SetAPIKey.
package envkey

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// EnvVar maps a schema provider name to the environment variable name the
// original implementation used for it. Callers resolving a provider not
// listed here should pass their own var name to ResolveVar instead.
var EnvVar = map[string]string{
	"openai":    "OA_API_KEY",
	"deepseek":  "DS_API_KEY",
	"anthropic": "CL_API_KEY",
}

var loadDotenvOnce sync.Once

// LoadDotenv loads a .env file from the current working directory into
// the process environment, if one exists. It is safe to call more than
// once; only the first call has any effect. Call it once at process
// startup, before Resolve, matching where the teacher's own examples load
// .env (before constructing any provider client).
func LoadDotenv() {
	loadDotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
}

// Resolve returns the API key for provider, trying (in order) its
// EnvVar-mapped environment variable, then the matching key in
// $HOME/.hynirc, returning "" if neither yields a value. Unknown
// providers (not in EnvVar) always resolve to "".
func Resolve(provider string) string {
	varName, ok := EnvVar[provider]
	if !ok {
		return ""
	}
	return ResolveVar(varName)
}

// ResolveVar returns the value of envVarName from the process
// environment, falling back to the matching key in $HOME/.hynirc.
func ResolveVar(envVarName string) string {
	if value := os.Getenv(envVarName); value != "" {
		return value
	}

	rcPath, ok := hynircPath()
	if !ok {
		return ""
	}

	config, err := parseHynirc(rcPath)
	if err != nil {
		return ""
	}
	return config[envVarName]
}

func hynircPath() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", false
	}
	return filepath.Join(home, ".hynirc"), true
}

// parseHynirc reads a KEY=VALUE-per-line file, trimming surrounding
// whitespace around both key and value, and skipping lines with no "=".
// Ported from the original's parse_hynirc.
func parseHynirc(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	config := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		config[key] = value
	}
	return config, scanner.Err()
}
