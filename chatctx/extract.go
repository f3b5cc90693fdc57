package chatctx

import (
	"fmt"
	"strings"

	"github.com/llmbridge/llmbridge/llmerr"
	"github.com/llmbridge/llmbridge/schema"
)

// ExtractTextResponse walks the schema's text_path through a decoded
// response body and returns the assistant's text, per spec §4.2. If the
// terminal value is a string it is returned directly; if it is an array of
// content items, the text fields of items whose type equals "text" are
// concatenated.
func (c *Context) ExtractTextResponse(response any) (string, error) {
	path := c.doc.ResponseFormat.Success.TextPath
	value, err := resolvePath(response, path)
	if err != nil {
		return "", llmerr.NewResponseShapeError(pathToAny(path), err.Error())
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case []any:
		var out strings.Builder
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if kind, _ := obj["type"].(string); kind == "text" {
				if text, ok := obj["text"].(string); ok {
					out.WriteString(text)
				}
			}
		}
		return out.String(), nil
	default:
		return "", llmerr.NewResponseShapeError(pathToAny(path), fmt.Sprintf("terminal value is neither a string nor a content-item array (got %T)", value))
	}
}

// ExtractFullResponse returns the value located by the schema's
// content_path verbatim, with no interpretation.
func (c *Context) ExtractFullResponse(response any) (any, error) {
	path := c.doc.ResponseFormat.Success.ContentPath
	if path.Empty() {
		return response, nil
	}
	value, err := resolvePath(response, path)
	if err != nil {
		return nil, llmerr.NewResponseShapeError(pathToAny(path), err.Error())
	}
	return value, nil
}

// ExtractError walks the schema's error_path and returns the error string
// if present, or the empty string otherwise. It never returns an error
// itself: a missing or unresolvable error_path simply means the response
// carried no schema-recognized error.
func (c *Context) ExtractError(response any) string {
	path := c.doc.ResponseFormat.Error.ErrorPath
	if path.Empty() {
		return ""
	}
	value, err := resolvePath(response, path)
	if err != nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// ExtractDelta walks the schema's content_delta_path through one decoded
// streaming frame. A frame that simply has no delta at this path (e.g. a
// role-only or usage-only chunk) is not an error: it returns ("", nil).
func (c *Context) ExtractDelta(frame any) (string, error) {
	path := c.doc.ResponseFormat.Stream.ContentDeltaPath
	if path.Empty() {
		return "", nil
	}
	value, err := resolvePath(frame, path)
	if err != nil {
		return "", nil
	}
	if s, ok := value.(string); ok {
		return s, nil
	}
	return "", llmerr.NewResponseShapeError(pathToAny(path), fmt.Sprintf("delta terminal value is not a string (got %T)", value))
}

// resolvePath walks root following path, indexing into arrays for integer
// elements and into objects for string elements.
func resolvePath(root any, path schema.ExtractionPath) (any, error) {
	cur := root
	for _, elem := range path {
		if elem.IsIndex {
			arr, ok := cur.([]any)
			if !ok {
				return nil, fmt.Errorf("expected an array at %s, got %T", elem, cur)
			}
			if elem.Index >= len(arr) {
				return nil, fmt.Errorf("index %d out of range (len %d)", elem.Index, len(arr))
			}
			cur = arr[elem.Index]
		} else {
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected an object at %q, got %T", elem.Key, cur)
			}
			val, present := obj[elem.Key]
			if !present {
				return nil, fmt.Errorf("missing field %q", elem.Key)
			}
			cur = val
		}
	}
	return cur, nil
}

func pathToAny(path schema.ExtractionPath) []any {
	out := make([]any, len(path))
	for i, elem := range path {
		if elem.IsIndex {
			out[i] = elem.Index
		} else {
			out[i] = elem.Key
		}
	}
	return out
}
