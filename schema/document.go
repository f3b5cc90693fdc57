// Package schema implements the declarative provider wire-contract that
// drives the rest of the module: a SchemaDoc is loaded once from JSON,
// validated, and then shared by reference across every Context and every
// goroutine bound to that provider. See the Registry type for loading and
// caching.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/llmbridge/llmbridge/llmerr"
)

// ParamKind enumerates the declarable parameter kinds a schema may use in
// its parameters block.
type ParamKind string

const (
	KindInteger ParamKind = "integer"
	KindFloat   ParamKind = "float"
	KindBoolean ParamKind = "boolean"
	KindString  ParamKind = "string"
	KindArray   ParamKind = "array"
)

// ParamConstraint is one declarative rule from a schema's parameters
// block: kind, optional numeric range, optional enum, required flag, and
// default value.
type ParamConstraint struct {
	Kind     ParamKind `json:"type"`
	Required bool      `json:"required,omitempty"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
	Default  any       `json:"default,omitempty"`
	Enum     []any     `json:"enum,omitempty"`
}

// PathElem is one step of an ExtractionPath: either a field name (string)
// or an array index (non-negative int).
type PathElem struct {
	Key     string
	Index   int
	IsIndex bool
}

func (p PathElem) String() string {
	if p.IsIndex {
		return fmt.Sprintf("[%d]", p.Index)
	}
	return p.Key
}

// ExtractionPath is an ordered sequence of field names / array indices used
// to walk a response JSON tree to a leaf value.
type ExtractionPath []PathElem

// UnmarshalJSON accepts a JSON array of strings and/or non-negative
// integers, per spec §4.1's validation rule for response_format.* paths.
func (p *ExtractionPath) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	path := make(ExtractionPath, 0, len(raw))
	for _, elem := range raw {
		switch v := elem.(type) {
		case string:
			path = append(path, PathElem{Key: v})
		case float64:
			if v < 0 || v != float64(int(v)) {
				return fmt.Errorf("extraction path element %v is not a non-negative integer", v)
			}
			path = append(path, PathElem{Index: int(v), IsIndex: true})
		default:
			return fmt.Errorf("extraction path element %v is neither a string nor an integer", v)
		}
	}
	*p = path
	return nil
}

// Empty reports whether the path has no elements (i.e. was omitted from the schema).
func (p ExtractionPath) Empty() bool { return len(p) == 0 }

// ProviderInfo identifies the provider a schema document describes.
type ProviderInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Version     string `json:"version,omitempty"`
	APIVersion  string `json:"api_version,omitempty"`
}

// APIInfo describes the endpoint this schema talks to.
type APIInfo struct {
	Endpoint   string `json:"endpoint"`
	Method     string `json:"method"`
	TimeoutMs  int    `json:"timeout_ms,omitempty"`
	MaxRetries int    `json:"max_retries,omitempty"`
}

// AuthInfo describes how the API key is placed into a request.
type AuthInfo struct {
	Type           string `json:"type"`
	KeyName        string `json:"key_name"`
	KeyPrefix      string `json:"key_prefix,omitempty"`
	KeyPlaceholder string `json:"key_placeholder,omitempty"`
}

// HeadersInfo holds the required/optional header templates. Values may
// contain the schema's key placeholder, substituted at header-build time.
type HeadersInfo struct {
	Required map[string]string `json:"required,omitempty"`
	Optional map[string]string `json:"optional,omitempty"`
}

// ModelsInfo lists the models a provider accepts.
type ModelsInfo struct {
	Available  []string `json:"available,omitempty"`
	Deprecated []string `json:"deprecated,omitempty"`
	Default    string   `json:"default,omitempty"`
}

// SystemMessageInfo describes whether/how a system message is carried.
type SystemMessageInfo struct {
	Supported bool   `json:"supported"`
	Field     string `json:"field,omitempty"`
	Type      string `json:"type,omitempty"`
	Role      string `json:"role,omitempty"`
}

// MultimodalInfo describes image-content support.
type MultimodalInfo struct {
	Supported           bool     `json:"supported"`
	SupportedTypes      []string `json:"supported_types,omitempty"`
	ImageFormats        []string `json:"image_formats,omitempty"`
	MaxImageSize        int      `json:"max_image_size,omitempty"`
	MaxImagesPerMessage int      `json:"max_images_per_message,omitempty"`
}

// MessageFormatInfo carries the JSON skeletons used to synthesize message
// and content-part bodies. Structure/SystemStructure/ContentTypes are kept
// as raw decoded JSON (map[string]any / []any) because placeholder
// substitution operates generically on whatever shape the schema declares.
type MessageFormatInfo struct {
	Structure       map[string]any `json:"structure"`
	SystemStructure map[string]any `json:"system_structure,omitempty"`
	ContentTypes    map[string]any `json:"content_types,omitempty"`
}

// SuccessPaths locates the pieces of a successful response.
type SuccessPaths struct {
	TextPath       ExtractionPath `json:"text_path,omitempty"`
	ContentPath    ExtractionPath `json:"content_path,omitempty"`
	UsagePath      ExtractionPath `json:"usage_path,omitempty"`
	ModelPath      ExtractionPath `json:"model_path,omitempty"`
	StopReasonPath ExtractionPath `json:"stop_reason_path,omitempty"`
}

// ErrorPaths locates the pieces of an error response.
type ErrorPaths struct {
	ErrorPath     ExtractionPath `json:"error_path,omitempty"`
	ErrorTypePath ExtractionPath `json:"error_type_path,omitempty"`
	ErrorCodePath ExtractionPath `json:"error_code_path,omitempty"`
}

// StreamPaths locates the pieces of a streaming delta frame.
type StreamPaths struct {
	EventTypes       []string       `json:"event_types,omitempty"`
	ContentDeltaPath ExtractionPath `json:"content_delta_path,omitempty"`
	UsageDeltaPath   ExtractionPath `json:"usage_delta_path,omitempty"`
}

// ResponseFormatInfo groups the three families of extraction paths.
type ResponseFormatInfo struct {
	Success SuccessPaths `json:"success"`
	Error   ErrorPaths   `json:"error,omitempty"`
	Stream  StreamPaths  `json:"stream,omitempty"`
}

// LimitsInfo carries advisory context/output limits. RateLimits is kept
// opaque; the core never interprets it (spec §1 excludes rate-limit
// token buckets from this module's responsibilities).
type LimitsInfo struct {
	MaxContextLength int            `json:"max_context_length,omitempty"`
	MaxOutputTokens  int            `json:"max_output_tokens,omitempty"`
	RateLimits       map[string]any `json:"rate_limits,omitempty"`
}

// FeaturesInfo carries the schema's capability flags. Only Streaming is
// consulted (by Context.BuildRequest and the facade); the other flags are
// carried but not read. Multimodal and system-message support are checked
// through MultimodalInfo and SystemMessageInfo instead.
type FeaturesInfo struct {
	Streaming       bool `json:"streaming"`
	FunctionCalling bool `json:"function_calling"`
	JSONMode        bool `json:"json_mode"`
	Vision          bool `json:"vision"`
	SystemMessages  bool `json:"system_messages"`
	MessageHistory  bool `json:"message_history"`
}

// MessageValidationInfo configures the structural rules build_request
// enforces over the message list.
type MessageValidationInfo struct {
	MinMessages      int    `json:"min_messages,omitempty"`
	AlternatingRoles bool   `json:"alternating_roles,omitempty"`
	LastMessageRole  string `json:"last_message_role,omitempty"`
}

// ValidationInfo groups the request-shape validation rules.
type ValidationInfo struct {
	RequiredFields     []string              `json:"required_fields,omitempty"`
	MessageValidation  MessageValidationInfo `json:"message_validation,omitempty"`
}

// Doc is the parsed, validated, immutable representation of one provider's
// wire contract. Once returned from Registry.Load it must never be
// mutated — it is shared by reference across every Context and goroutine
// bound to that provider (spec §3 invariant 6).
type Doc struct {
	Provider       ProviderInfo        `json:"provider"`
	API            APIInfo             `json:"api"`
	Authentication *AuthInfo           `json:"authentication,omitempty"`
	Headers        HeadersInfo         `json:"headers,omitempty"`
	Models         ModelsInfo          `json:"models,omitempty"`
	RequestTemplate map[string]any     `json:"request_template"`
	Parameters     map[string]ParamConstraint `json:"parameters,omitempty"`
	MessageRoles   []string            `json:"message_roles"`
	SystemMessage  SystemMessageInfo   `json:"system_message,omitempty"`
	Multimodal     MultimodalInfo      `json:"multimodal,omitempty"`
	MessageFormat  MessageFormatInfo   `json:"message_format"`
	ResponseFormat ResponseFormatInfo  `json:"response_format"`
	Limits         LimitsInfo          `json:"limits,omitempty"`
	Features       FeaturesInfo        `json:"features,omitempty"`
	ErrorCodes     map[string]string   `json:"error_codes,omitempty"`
	Validation     ValidationInfo      `json:"validation,omitempty"`
}

// Parse decodes and structurally validates a schema document's JSON bytes.
// The returned Doc is ready to publish into a Registry; Parse itself does
// not cache anything.
func Parse(providerNameHint string, data []byte) (*Doc, error) {
	var doc Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, llmerr.NewSchemaError(providerNameHint, "malformed JSON", err)
	}

	if err := doc.validate(); err != nil {
		return nil, llmerr.NewSchemaError(providerNameHint, "structural validation failed", err)
	}

	return &doc, nil
}

// validate enforces the required-section and per-parameter rules of
// spec §4.1.
func (d *Doc) validate() error {
	if d.Provider.Name == "" {
		return fmt.Errorf("provider.name is required")
	}
	if d.API.Endpoint == "" {
		return fmt.Errorf("api.endpoint is required")
	}
	if d.API.Method == "" {
		return fmt.Errorf("api.method is required")
	}
	if d.RequestTemplate == nil {
		return fmt.Errorf("request_template is required")
	}
	if len(d.MessageRoles) == 0 {
		return fmt.Errorf("message_roles is required")
	}
	if d.ResponseFormat.Success.TextPath.Empty() && d.ResponseFormat.Success.ContentPath.Empty() {
		return fmt.Errorf("response_format.success.text_path or content_path is required")
	}
	if len(d.Headers.Required) == 0 && d.Authentication == nil {
		return fmt.Errorf("headers.required or authentication is required")
	}

	for name, p := range d.Parameters {
		switch p.Kind {
		case KindInteger, KindFloat, KindBoolean, KindString, KindArray:
		default:
			return fmt.Errorf("parameters.%s: unknown kind %q", name, p.Kind)
		}
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			return fmt.Errorf("parameters.%s: min %v exceeds max %v", name, *p.Min, *p.Max)
		}
		if p.Enum != nil && len(p.Enum) == 0 {
			return fmt.Errorf("parameters.%s: enum must be non-empty when present", name)
		}
	}

	return nil
}

// SupportsModel reports whether name is in the union of the available and
// deprecated model lists. Used by Context.SetModel under strict validation.
func (d *Doc) SupportsModel(name string) bool {
	for _, m := range d.Models.Available {
		if m == name {
			return true
		}
	}
	for _, m := range d.Models.Deprecated {
		if m == name {
			return true
		}
	}
	return false
}

// HasRole reports whether role is in the schema's declared message_roles set.
func (d *Doc) HasRole(role string) bool {
	for _, r := range d.MessageRoles {
		if r == role {
			return true
		}
	}
	return false
}
