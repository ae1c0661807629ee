package mir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON used for content hashing.
// This is the ONLY serialization that should be used for surface identity.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. Floats and null are rejected
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return writeCanonicalString(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		buf.WriteByte('{')
		for i, k := range sortedKeys(val) {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// sortedKeys orders keys by UTF-16 code units.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a := utf16.Encode([]rune(keys[i]))
		b := utf16.Encode([]rune(keys[j]))
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	return keys
}

// canonicalSurface converts a surface into the generic form accepted by
// MarshalCanonical.
func canonicalSurface(s *Surface) map[string]any {
	groups := make([]any, len(s.Groups))
	for i, g := range s.Groups {
		groups[i] = map[string]any{
			"type":          g.ValueType.Name,
			"source_kind":   string(g.Source.Kind),
			"source_socket": g.Source.Socket,
		}
	}
	nodes := make([]any, len(s.Nodes))
	for i, n := range s.Nodes {
		sockets := make([]any, len(n.Sockets))
		for j, sock := range n.Sockets {
			sockets[j] = map[string]any{
				"group_id":      sock.GroupID,
				"is_extractor":  sock.IsExtractor,
				"value_written": sock.ValueWritten,
				"value_read":    sock.ValueRead,
			}
		}
		node := map[string]any{"sockets": sockets}
		switch data := n.Data.(type) {
		case Custom:
			node["kind"] = data.Kind()
			node["block"] = data.Block.DebugName
			node["block_id"] = data.Block.ID
		case Group:
			node["kind"] = data.Kind()
			node["surface"] = data.Surface.DebugName
			node["surface_id"] = data.Surface.ID
		case ExtractGroup:
			node["kind"] = data.Kind()
			node["surface"] = data.Surface.DebugName
			node["surface_id"] = data.Surface.ID
			node["source_sockets"] = intsToAny(data.SourceSockets)
			node["dest_sockets"] = intsToAny(data.DestSockets)
		}
		nodes[i] = node
	}
	return map[string]any{
		"name":   s.ID.DebugName,
		"groups": groups,
		"nodes":  nodes,
	}
}

func intsToAny(xs []int) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}
