// Package codec isolates the value-encoding rules the settings backend has
// accumulated over time: legacy string-encoded booleans, JSON-encoded
// mappings, and the loose truthiness the load path relies on. Keeping them
// here keeps the store and resolvers free of decoding conditionals.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformed indicates a stored value that should decode as JSON does not.
var ErrMalformed = errors.New("codec: malformed stored value")

// DecodeLegacyBool maps the two legacy string sentinels "true" and "false"
// onto their boolean values. Any other input passes through untouched.
// Older releases persisted booleans as strings; this keeps them readable.
func DecodeLegacyBool(raw any) any {
	if s, ok := raw.(string); ok {
		switch s {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return raw
}

// Truthy reports whether a stored value counts as present for default
// fallback purposes. The rules mirror the loose truthiness older storage
// formats were written against: nil, false, zero numbers, and the empty
// string are all absent.
func Truthy(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case float32:
		return v != 0
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

// CoerceJSON decodes string values through JSON when a boolean default is in
// play. Non-string values already carry their type and pass through.
func CoerceJSON(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return raw, nil
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformed, s, err)
	}
	return out, nil
}

// DecodeStringMap reads a stored mapping of string to string. The backend
// may hold it as a decoded object or as a JSON-encoded string; absent values
// yield an empty map.
func DecodeStringMap(raw any) (map[string]string, error) {
	switch v := raw.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		out := make(map[string]string, len(v))
		for key, value := range v {
			out[key] = value
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(v))
		for key, value := range v {
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: entry %q is %T, want string", ErrMalformed, key, value)
			}
			out[key] = s
		}
		return out, nil
	case string:
		if v == "" {
			return map[string]string{}, nil
		}
		var out map[string]string
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if out == nil {
			out = map[string]string{}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: mapping is %T", ErrMalformed, raw)
	}
}

// DecodeIntMap reads a stored mapping of string to integer, typically a
// JSON-encoded string. Absent values yield an empty map; a nil return with
// no error never happens.
func DecodeIntMap(raw any) (map[string]int, error) {
	switch v := raw.(type) {
	case nil:
		return map[string]int{}, nil
	case map[string]int:
		out := make(map[string]int, len(v))
		for key, value := range v {
			out[key] = value
		}
		return out, nil
	case map[string]any:
		out := make(map[string]int, len(v))
		for key, value := range v {
			out[key] = ParseInt(value)
		}
		return out, nil
	case string:
		if v == "" {
			return map[string]int{}, nil
		}
		var decoded map[string]float64
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		out := make(map[string]int, len(decoded))
		for key, value := range decoded {
			out[key] = int(value)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: mapping is %T", ErrMalformed, raw)
	}
}

// EncodeMap serialises a mapping into the JSON string form the backend
// stores for scoped values.
func EncodeMap(m any) (string, error) {
	buffer, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("codec: encode mapping: %w", err)
	}
	return string(buffer), nil
}

// ParseInt reads an integer out of whatever the backend returned for a
// numeric key. Numbers may round-trip as strings or floats; anything
// unreadable counts as zero, the same tolerant parse older releases
// applied to the global default project.
func ParseInt(raw any) int {
	switch v := raw.(type) {
	case nil:
		return 0
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return 0
	}
}
