package chatctx

import (
	"sync"

	"github.com/llmbridge/llmbridge/internal/gid"
	"github.com/llmbridge/llmbridge/schema"
)

// Factory creates Contexts from a shared Registry, and maintains the
// per-goroutine Context store described in spec §4.3 ("thread-local"
// storage keyed by provider name). A Factory is safe for concurrent use.
type Factory struct {
	registry *schema.Registry
	config   Config

	mu          sync.Mutex
	perGoroutine map[goroutineKey]*Context
}

type goroutineKey struct {
	goroutine uint64
	provider  string
}

// NewFactory returns a Factory that resolves schema documents through
// registry and builds Contexts with config.
func NewFactory(registry *schema.Registry, config Config) *Factory {
	return &Factory{
		registry:    registry,
		config:      config,
		perGoroutine: make(map[goroutineKey]*Context),
	}
}

// CreateContext asks the Registry for provider's schema.Doc and returns a
// brand-new Context bound to it. The caller owns the returned Context.
func (f *Factory) CreateContext(provider string) (*Context, error) {
	doc, err := f.registry.Load(provider)
	if err != nil {
		return nil, err
	}
	return New(doc, f.config)
}

// GetThreadLocalContext returns the Context this goroutine has previously
// obtained for provider, creating one on first access. The same calling
// goroutine always observes the same *Context for the same provider name;
// a different goroutine gets an independent Context even for the same
// provider, because the shared schema.Doc is immutable and safe to bind
// to many Contexts at once (spec §5).
//
// Go has no goroutine-exit hook, so unlike the original's OS-thread-local
// storage, entries are not reclaimed automatically when a goroutine ends —
// callers running bounded goroutine pools should call ForgetCurrent once a
// worker goroutine is done, and Close when the Factory itself is no longer
// needed, to avoid unbounded growth of perGoroutine.
func (f *Factory) GetThreadLocalContext(provider string) (*Context, error) {
	key := goroutineKey{goroutine: gid.Current(), provider: provider}

	f.mu.Lock()
	defer f.mu.Unlock()

	if ctx, ok := f.perGoroutine[key]; ok {
		return ctx, nil
	}

	doc, err := f.registry.Load(provider)
	if err != nil {
		return nil, err
	}

	ctx, err := New(doc, f.config)
	if err != nil {
		return nil, err
	}

	f.perGoroutine[key] = ctx
	return ctx, nil
}

// ForgetCurrent drops the calling goroutine's thread-local Context for
// provider, if any. Call this before a pooled worker goroutine exits.
func (f *Factory) ForgetCurrent(provider string) {
	key := goroutineKey{goroutine: gid.Current(), provider: provider}

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.perGoroutine, key)
}

// Close invalidates every outstanding thread-local entry. It is the
// equivalent of the original factory's destructor safely tearing down
// live thread-local references; Contexts already obtained by callers
// remain individually usable, but GetThreadLocalContext will mint fresh
// ones afterward.
func (f *Factory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perGoroutine = make(map[goroutineKey]*Context)
}
