package chatctx

// Config carries constructor-time defaults for a Context, mirroring
// original_source's context_config. It is a value type consumed once by
// New; mutating a Config after construction has no effect on the Context
// it produced.
type Config struct {
	// EnableValidation turns on parameter/role/shape checking in mutation
	// methods and build_request. Defaults to true when a Config is built
	// via DefaultConfig; the zero Config has it false, so callers who
	// construct Config{} directly get an unchecked Context unless they
	// set this explicitly — use DefaultConfig to opt into the common case.
	EnableValidation bool

	// EnableStreamingSupport reflects the caller's intent to use streaming
	// sends against this Context. It does not itself gate anything inside
	// Context; the schema's Features.Streaming flag is the source of
	// truth consulted by build_request and the facade.
	EnableStreamingSupport bool

	// DefaultMaxTokens and DefaultTemperature, when set, seed the
	// Context's parameter map under the schema's conventional "max_tokens"
	// / "temperature" keys, provided the schema declares those parameters.
	DefaultMaxTokens   *int
	DefaultTemperature *float64

	// CustomParameters seeds additional parameter values beyond the two
	// conventional ones above. Applied after DefaultMaxTokens/Temperature,
	// so a key present in both wins here.
	CustomParameters map[string]any
}

// DefaultConfig returns a Config with validation enabled and no overrides,
// the sensible default for application code.
func DefaultConfig() Config {
	return Config{EnableValidation: true}
}
