// Package partition derives deterministic, filesystem-safe partition keys
// from tool call parameters. The key groups semantically identical calls into
// one directory and separates semantically different ones.
package partition

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AbsentToken is substituted for a discriminating parameter with no value.
const AbsentToken = "all"

// UnknownToken is substituted for a missing identity parameter.
const UnknownToken = "UNKNOWN"

// Spec declares how one tool's parameters map to a partition key.
//
// The general rule: identity parameters become leading path segments
// verbatim; discriminating parameters are joined with underscores in the
// declared order, with AbsentToken standing in for unset values. Tools whose
// keys derive from parameter content in a non-positional way (dates split
// into year/month, for example) set KeyFunc instead.
type Spec struct {
	Tool           string
	Identity       []string
	Discriminators []string

	// KeyFunc overrides the general rule entirely when set.
	KeyFunc func(params map[string]any) string

	// SubPartitionBy names a row column whose value further splits the
	// partition into data-driven subdirectories at write time. When set,
	// the partition's glob form is recursive.
	SubPartitionBy string

	// SubPartitionKey maps a row value of SubPartitionBy to a directory
	// name. Required when SubPartitionBy is set.
	SubPartitionKey func(value string) string
}

// Recursive reports whether the tool's partitions contain data-driven
// subdirectories, which changes the glob form returned on finalize.
func (s *Spec) Recursive() bool {
	return s.SubPartitionBy != ""
}

// Key derives the partition key for the given parameters. The result is
// deterministic: identical parameter values, including unset ones, always
// produce the identical key.
func (s *Spec) Key(params map[string]any) string {
	if s.KeyFunc != nil {
		return s.KeyFunc(params)
	}

	segments := make([]string, 0, len(s.Identity)+1)
	for _, name := range s.Identity {
		v := Stringify(params[name])
		if v == "" {
			v = UnknownToken
		}
		segments = append(segments, Sanitize(v))
	}

	if len(s.Discriminators) > 0 {
		parts := make([]string, 0, len(s.Discriminators))
		for _, name := range s.Discriminators {
			v := Stringify(params[name])
			if v == "" {
				v = AbsentToken
			}
			parts = append(parts, Sanitize(v))
		}
		segments = append(segments, strings.Join(parts, "_"))
	}

	if len(segments) == 0 {
		return HashKey(params)
	}
	return strings.Join(segments, "/")
}

// HashKey is the fallback for tools with no declared spec: a short digest of
// the sorted-key JSON encoding of the parameters.
func HashKey(params map[string]any) string {
	data, err := json.Marshal(normalize(params))
	if err != nil {
		data = fmt.Appendf(nil, "%v", params)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("params_%x", sum[:4])
}

// normalize renders every parameter value through Stringify so that
// equivalent values (5 vs 5.0, nil vs absent) hash identically.
// encoding/json emits map keys in sorted order, which keeps the digest
// stable across calls.
func normalize(params map[string]any) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		s := Stringify(v)
		if s == "" {
			continue
		}
		out[k] = s
	}
	return out
}

// Stringify renders a parameter value deterministically. Unset values
// (nil or missing) render as the empty string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Sanitize makes a value safe for use as a single path segment.
// Letters, digits, dot, dash and underscore pass through; everything else,
// path separators included, becomes a dash.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
