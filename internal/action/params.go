package action

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// maxPositional is the highest paramN alias consulted during extraction.
const maxPositional = 9

// Params holds the raw parameters of a proposal. Values may be stored under
// their canonical name or under a positional alias (param1..param9).
type Params map[string]any

// Lookup returns the first non-nil value stored under one of names. When none
// is present it scans param1..param9 in order.
func (p Params) Lookup(names ...string) (any, bool) {
	if p == nil {
		return nil, false
	}
	for _, name := range names {
		if v, ok := p[name]; ok && v != nil {
			return v, true
		}
	}
	for i := 1; i <= maxPositional; i++ {
		if v, ok := p["param"+strconv.Itoa(i)]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Get is Lookup with a default for the missing case.
func (p Params) Get(def any, names ...string) any {
	if v, ok := p.Lookup(names...); ok {
		return v
	}
	return def
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

func toString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case int, int64, json.Number, bool:
		return fmt.Sprint(s), nil
	default:
		return "", fmt.Errorf("not a string: %T", v)
	}
}

func toKeys(v any) ([]string, error) {
	switch ks := v.(type) {
	case string:
		return []string{ks}, nil
	case []string:
		return append([]string(nil), ks...), nil
	case []any:
		out := make([]string, 0, len(ks))
		for i, k := range ks {
			s, err := toString(k)
			if err != nil {
				return nil, fmt.Errorf("key %d: %w", i, err)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("not a key sequence: %T", v)
	}
}

// toPoint accepts either [x, y] or {"x": .., "y": ..}.
func toPoint(v any) (Point, error) {
	switch pt := v.(type) {
	case Point:
		return pt, nil
	case []any:
		if len(pt) < 2 {
			return Point{}, fmt.Errorf("point needs two coordinates, got %d", len(pt))
		}
		x, err := toFloat(pt[0])
		if err != nil {
			return Point{}, err
		}
		y, err := toFloat(pt[1])
		if err != nil {
			return Point{}, err
		}
		return Point{X: x, Y: y}, nil
	case []float64:
		if len(pt) < 2 {
			return Point{}, fmt.Errorf("point needs two coordinates, got %d", len(pt))
		}
		return Point{X: pt[0], Y: pt[1]}, nil
	case map[string]any:
		x, err := toFloat(pt["x"])
		if err != nil {
			return Point{}, err
		}
		y, err := toFloat(pt["y"])
		if err != nil {
			return Point{}, err
		}
		return Point{X: x, Y: y}, nil
	default:
		return Point{}, fmt.Errorf("not a point: %T", v)
	}
}

func toPath(v any) ([]Point, error) {
	switch ps := v.(type) {
	case []Point:
		return append([]Point(nil), ps...), nil
	case []any:
		out := make([]Point, 0, len(ps))
		for i, item := range ps {
			pt, err := toPoint(item)
			if err != nil {
				return nil, fmt.Errorf("point %d: %w", i, err)
			}
			out = append(out, pt)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("not a path: %T", v)
	}
}
