package calltree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// DecodeError is returned when the JSON produced by the analysis script, or
// read from an exported profile, doesn't describe a valid call tree.
type DecodeError struct {
	// Path locates the offending element, e.g. "roots[0].children[3]".
	Path string
	// Reason describes what is wrong with it.
	Reason string
	// Err is the underlying JSON error, if any.
	Err error
}

func (e *DecodeError) Error() string {
	msg := "invalid call tree"
	if e.Path != "" {
		msg += " at " + e.Path
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FromObject builds a node and its subtree from a decoded JSON object. The
// "name" field is required, "children", "metrics" and "attributes" default to
// empty values.
func FromObject(raw any) (*Node, error) {
	return nodeFromObject(raw, "node")
}

func nodeFromObject(raw any, path string) (*Node, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &DecodeError{Path: path, Reason: fmt.Sprintf("expected object, got %s", typeName(raw))}
	}

	name, ok := obj["name"].(string)
	if !ok {
		return nil, &DecodeError{Path: path, Reason: "missing required field \"name\""}
	}

	var frame map[string]any
	if v, ok := obj["frame"]; ok && v != nil {
		if frame, ok = v.(map[string]any); !ok {
			return nil, &DecodeError{Path: path + ".frame", Reason: fmt.Sprintf("expected object, got %s", typeName(v))}
		}
	}

	metrics, err := metricsFromObject(obj["metrics"], path+".metrics")
	if err != nil {
		return nil, err
	}

	attributes := map[string]any{}
	if v, ok := obj["attributes"]; ok && v != nil {
		if attributes, ok = v.(map[string]any); !ok {
			return nil, &DecodeError{Path: path + ".attributes", Reason: fmt.Sprintf("expected object, got %s", typeName(v))}
		}
		attributes = normalizeNumbers(attributes)
	}

	children := []*Node{}
	if v, ok := obj["children"]; ok && v != nil {
		list, ok := v.([]any)
		if !ok {
			return nil, &DecodeError{Path: path + ".children", Reason: fmt.Sprintf("expected array, got %s", typeName(v))}
		}
		for i, rawChild := range list {
			// The analysis script emits null for pruned children.
			if rawChild == nil {
				continue
			}
			child, err := nodeFromObject(rawChild, fmt.Sprintf("%s.children[%d]", path, i))
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
	}

	return NewNode(name, normalizeNumbers(frame), metrics, attributes, children), nil
}

func metricsFromObject(raw any, path string) (map[string]float64, error) {
	metrics := map[string]float64{}
	if raw == nil {
		return metrics, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &DecodeError{Path: path, Reason: fmt.Sprintf("expected object, got %s", typeName(raw))}
	}
	for name, v := range obj {
		switch v := v.(type) {
		case nil:
			// undefined for this node
		case float64:
			metrics[name] = v
		case int:
			metrics[name] = float64(v)
		case int64:
			metrics[name] = float64(v)
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return nil, &DecodeError{Path: path + "." + name, Reason: "invalid number", Err: err}
			}
			metrics[name] = f
		default:
			return nil, &DecodeError{Path: path + "." + name, Reason: fmt.Sprintf("expected number, got %s", typeName(v))}
		}
	}
	return metrics, nil
}

// normalizeNumbers converts json.Number values in m into float64.
func normalizeNumbers(m map[string]any) map[string]any {
	for k, v := range m {
		if n, ok := v.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				m[k] = f
			}
		}
	}
	return m
}

// TreeFromObject builds a tree from a decoded JSON value. Both a bare array of
// root objects and an object with a "roots" key are accepted.
func TreeFromObject(raw any) (*Tree, error) {
	var list []any
	switch v := raw.(type) {
	case []any:
		list = v
	case map[string]any:
		roots, ok := v["roots"].([]any)
		if !ok {
			return nil, &DecodeError{Reason: "expected \"roots\" array"}
		}
		list = roots
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("expected array or object, got %s", typeName(raw))}
	}

	roots := make([]*Node, 0, len(list))
	for i, rawRoot := range list {
		if rawRoot == nil {
			continue
		}
		root, err := nodeFromObject(rawRoot, fmt.Sprintf("roots[%d]", i))
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	if len(roots) == 0 {
		return nil, &DecodeError{Reason: "no root nodes"}
	}
	return NewTree(roots), nil
}

// FromString parses the JSON document s into a tree.
func FromString(s string) (*Tree, error) {
	return Parse(strings.NewReader(s))
}

// Parse reads a JSON document from r and parses it into a tree.
func Parse(r io.Reader) (*Tree, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &DecodeError{Reason: "malformed JSON", Err: err}
	}
	// Anything but whitespace after the document is malformed output.
	if _, err := dec.Token(); err != io.EOF {
		return nil, &DecodeError{Reason: "unexpected data after JSON document"}
	}
	return TreeFromObject(raw)
}

// ParseBytes is like Parse but reads from a byte slice.
func ParseBytes(data []byte) (*Tree, error) {
	return Parse(bytes.NewReader(data))
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
