// Package attrs decodes the tagged-union wire representation used by the
// change-capture source into plain keyed values.
package attrs

import (
	"encoding/base64"
	"strconv"
)

// Value is one tagged-union wire value. Exactly one tag is expected to be
// set; a value with no recognized tag decodes to nothing.
type Value struct {
	S    *string          `json:"S,omitempty"`
	N    *string          `json:"N,omitempty"`
	Bool *bool            `json:"BOOL,omitempty"`
	SS   []string         `json:"SS,omitempty"`
	NS   []string         `json:"NS,omitempty"`
	BS   []string         `json:"BS,omitempty"`
	L    []Value          `json:"L,omitempty"`
	M    map[string]Value `json:"M,omitempty"`
	Null *bool            `json:"NULL,omitempty"`
}

// Decode converts a wire map into a plain map. Decoding is total over the
// supported tag set; fields with unrecognized or empty tags are omitted
// rather than reported as errors (accepted lossy-decode policy).
func Decode(wire map[string]Value) map[string]any {
	out := make(map[string]any, len(wire))
	for name, v := range wire {
		decoded, ok := decodeValue(v)
		if !ok {
			continue
		}
		out[name] = decoded
	}
	return out
}

func decodeValue(v Value) (any, bool) {
	switch {
	case v.S != nil:
		return *v.S, true
	case v.N != nil:
		return decodeNumber(*v.N)
	case v.Bool != nil:
		return *v.Bool, true
	case v.Null != nil:
		return nil, true
	case v.SS != nil:
		out := make([]any, 0, len(v.SS))
		for _, s := range v.SS {
			out = append(out, s)
		}
		return out, true
	case v.NS != nil:
		out := make([]any, 0, len(v.NS))
		for _, n := range v.NS {
			num, ok := decodeNumber(n)
			if !ok {
				continue
			}
			out = append(out, num)
		}
		return out, true
	case v.BS != nil:
		out := make([]any, 0, len(v.BS))
		for _, b := range v.BS {
			raw, err := base64.StdEncoding.DecodeString(b)
			if err != nil {
				continue
			}
			out = append(out, raw)
		}
		return out, true
	case v.L != nil:
		out := make([]any, 0, len(v.L))
		for _, item := range v.L {
			decoded, ok := decodeValue(item)
			if !ok {
				continue
			}
			out = append(out, decoded)
		}
		return out, true
	case v.M != nil:
		return Decode(v.M), true
	default:
		return nil, false
	}
}

func decodeNumber(raw string) (any, bool) {
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}
	return n, true
}
