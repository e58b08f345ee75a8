package redact

import (
	"encoding/json"
	"fmt"
)

// ScrubDeep returns a scrubbed copy of v. Maps and slices are walked
// recursively; any map field whose name satisfies IsSensitiveKey is replaced
// by Marker before its value is inspected. Strings are passed through Scrub.
// Numbers, booleans and nil are returned unchanged.
//
// Other types (structs, pointers, typed maps) are converted to their JSON form
// first, so struct fields are matched by their JSON names.
func ScrubDeep(v any, opts Options) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return Scrub(val, opts)
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if IsSensitiveKey(k) {
				out[k] = Marker
				continue
			}
			out[k] = ScrubDeep(item, opts)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if IsSensitiveKey(k) {
				out[k] = Marker
				continue
			}
			out[k] = Scrub(item, opts)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = ScrubDeep(item, opts)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Scrub(item, opts)
		}
		return out
	case error:
		return Scrub(val.Error(), opts)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Scrub(fmt.Sprint(v), opts)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return Scrub(string(data), opts)
	}
	return ScrubDeep(generic, opts)
}
