package schema

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/llmbridge/llmbridge/llmerr"
)

// Registry loads, validates, and caches Doc values by provider name.
// Construct one with NewRegistry; the zero Registry has nil maps, so
// Register and Load panic on it. SetDirectory establishes the fallback
// lookup directory and Register pins individual providers to an explicit
// path.
//
// Registry lookups are safe for concurrent use (spec §4.1, §5): Load
// serializes writers with a short critical section keyed implicitly by the
// registry's single mutex (schema files are loaded rarely enough that a
// single lock is not a bottleneck), while published Docs are immutable and
// handed out by pointer so concurrent readers never block each other after
// the first load. This mirrors the sync.RWMutex map idiom of the teacher's
// tool.Catalog.
type Registry struct {
	mu          sync.RWMutex
	directory   string
	registered  map[string]string
	cache       map[string]*Doc
}

// NewRegistry returns an empty Registry with no directory configured.
func NewRegistry() *Registry {
	return &Registry{
		registered: make(map[string]string),
		cache:      make(map[string]*Doc),
	}
}

// SetDirectory sets the fallback lookup directory used when a provider has
// no explicit registration. A trailing separator is appended if absent.
func (r *Registry) SetDirectory(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if path != "" && !strings.HasSuffix(path, string(os.PathSeparator)) {
		path += string(os.PathSeparator)
	}
	r.directory = path
}

// Register associates an explicit schema file path with a provider name,
// overriding directory lookup for that name.
func (r *Registry) Register(name, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered[name] = path
}

// resolvePath returns the file path to try for name: the explicit
// registration if present, else <directory>/<name>.json.
func (r *Registry) resolvePath(name string) string {
	if path, ok := r.registered[name]; ok {
		return path
	}
	return filepath.Join(r.directory, name+".json")
}

// IsAvailable reports whether a schema file exists for name, via either an
// explicit registration or the configured directory.
func (r *Registry) IsAvailable(name string) bool {
	r.mu.RLock()
	path := r.resolvePath(name)
	r.mu.RUnlock()

	_, err := os.Stat(path)
	return err == nil
}

// ListProviders returns the union of registered names (whose file exists)
// and the *.json files in the configured directory, each name appearing
// at most once. Order is not guaranteed.
func (r *Registry) ListProviders() []string {
	r.mu.RLock()
	directory := r.directory
	registered := make(map[string]string, len(r.registered))
	for k, v := range r.registered {
		registered[k] = v
	}
	r.mu.RUnlock()

	seen := make(map[string]struct{})
	var names []string

	for name, path := range registered {
		if _, err := os.Stat(path); err == nil {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}

	if directory != "" {
		entries, err := os.ReadDir(directory)
		if err == nil {
			for _, entry := range entries {
				if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
					continue
				}
				name := strings.TrimSuffix(entry.Name(), ".json")
				if _, ok := seen[name]; !ok {
					seen[name] = struct{}{}
					names = append(names, name)
				}
			}
		}
	}

	return names
}

// Load resolves name's schema path, reads and parses the file, validates
// it, caches the result, and returns the cached immutable Doc. Subsequent
// calls for the same name return the same *Doc without re-reading the file.
func (r *Registry) Load(name string) (*Doc, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[name]; ok {
		return cached, nil
	}

	path := r.resolvePath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, llmerr.NewSchemaError(name, fmt.Sprintf("schema file not found at %s", path), err)
	}

	doc, err := Parse(name, data)
	if err != nil {
		return nil, err
	}
	if doc.Provider.Name != name {
		// The file may declare a different provider name than the lookup
		// key; that is legal (aliasing), but callers key the cache by the
		// name they requested, not the declared one.
		slog.Debug("schema provider name differs from lookup key", "requested", name, "declared", doc.Provider.Name)
	}

	r.cache[name] = doc
	return doc, nil
}

// knownProviderHosts maps a distinctive endpoint host substring to the
// provider name this module ships a schema for. Ported from the original
// chat_api::detect_api_provider, which performed the same substring match
// against an API_PROVIDER enum.
var knownProviderHosts = map[string]string{
	"openai.com":    "openai",
	"deepseek.com":  "deepseek",
	"anthropic.com": "anthropic",
	"mistral.ai":    "mistral",
}

// DetectProviderFromEndpoint inspects url for a known provider host and
// returns the matching provider name, and whether a match was found. It
// is a convenience for callers picking which schema to load from a
// user-supplied endpoint URL; the request/response path never calls it.
func DetectProviderFromEndpoint(url string) (string, bool) {
	for host, provider := range knownProviderHosts {
		if strings.Contains(url, host) {
			return provider, true
		}
	}
	return "", false
}
