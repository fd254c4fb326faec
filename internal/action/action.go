package action

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the closed set of interactions the agent can request.
type Kind string

const (
	KindBrowseTo       Kind = "browse_to"
	KindClick          Kind = "click"
	KindDoubleClick    Kind = "double_click"
	KindScroll         Kind = "scroll"
	KindType           Kind = "type"
	KindWait           Kind = "wait"
	KindMove           Kind = "move"
	KindKeypress       Kind = "keypress"
	KindDrag           Kind = "drag"
	KindTakeScreenshot Kind = "take_screenshot"
)

var kinds = []Kind{
	KindBrowseTo, KindClick, KindDoubleClick, KindScroll, KindType,
	KindWait, KindMove, KindKeypress, KindDrag, KindTakeScreenshot,
}

// Kinds lists every canonical kind in a stable order.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// Valid reports whether k is one of the canonical kinds.
func (k Kind) Valid() bool {
	for _, known := range kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Point is a viewport coordinate pair.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ElementDetails describes the element the reasoning service is targeting.
type ElementDetails struct {
	Type                   string  `json:"type,omitempty"`
	VisualDescription      string  `json:"visual_description,omitempty"`
	Location               string  `json:"location,omitempty"`
	Context                string  `json:"context,omitempty"`
	Confidence             float64 `json:"confidence,omitempty"`
	AlternativeCoordinates []Point `json:"alternative_coordinates,omitempty"`
}

// Alternatives returns the fallback coordinates, tolerating a nil receiver.
func (e *ElementDetails) Alternatives() []Point {
	if e == nil {
		return nil
	}
	return e.AlternativeCoordinates
}

// Action is one proposal from the reasoning service, before normalization.
type Action struct {
	Kind          Kind            `json:"action"`
	Params        Params          `json:"params"`
	Element       *ElementDetails `json:"element_details,omitempty"`
	Rationale     string          `json:"reasoning"`
	GoalCompleted bool            `json:"goal_completed"`
}

// Describe renders the kind and its key parameters on one line.
func (a Action) Describe() string {
	p := a.Params
	switch a.Kind {
	case KindClick, KindDoubleClick:
		return fmt.Sprintf("%s at (%v, %v)", a.Kind, p.Get("unknown", "x"), p.Get("unknown", "y"))
	case KindType:
		return fmt.Sprintf("%s: %q", a.Kind, fmt.Sprint(p.Get("unknown", "text")))
	case KindScroll:
		return fmt.Sprintf("%s by (%v, %v)", a.Kind, p.Get(0, "scroll_x"), p.Get(0, "scroll_y"))
	case KindBrowseTo:
		return fmt.Sprintf("%s: %v", a.Kind, p.Get("unknown", "url"))
	default:
		raw, err := json.Marshal(p)
		if err != nil || p == nil {
			raw = []byte("{}")
		}
		return fmt.Sprintf("%s: %s", a.Kind, raw)
	}
}

// Decode parses a reasoning response object. Unlike json.Unmarshal into Action
// it tolerates params that are not an object and malformed element details,
// since the producer is not bound to the schema.
func Decode(data []byte) (Action, error) {
	var raw struct {
		Reasoning     json.RawMessage `json:"reasoning"`
		Action        json.RawMessage `json:"action"`
		Params        json.RawMessage `json:"params"`
		Element       json.RawMessage `json:"element_details"`
		GoalCompleted json.RawMessage `json:"goal_completed"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Action{}, fmt.Errorf("decode action: %w", err)
	}
	a := Action{
		Kind:          Kind(strings.TrimSpace(rawString(raw.Action))),
		Rationale:     rawString(raw.Reasoning),
		GoalCompleted: rawBool(raw.GoalCompleted),
		Params:        Params{},
	}
	if len(raw.Params) > 0 {
		var m map[string]any
		if err := json.Unmarshal(raw.Params, &m); err == nil && m != nil {
			a.Params = m
		}
	}
	a.Element = decodeElement(raw.Element)
	return a, nil
}

func decodeElement(data json.RawMessage) *ElementDetails {
	if len(data) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return nil
	}
	el := &ElementDetails{
		Type:              stringField(m, "type"),
		VisualDescription: stringField(m, "visual_description"),
		Location:          stringField(m, "location"),
		Context:           stringField(m, "context"),
	}
	if c, err := toFloat(m["confidence"]); err == nil {
		el.Confidence = c
	}
	if alts, ok := m["alternative_coordinates"].([]any); ok {
		for _, item := range alts {
			if pt, err := toPoint(item); err == nil {
				el.AlternativeCoordinates = append(el.AlternativeCoordinates, pt)
			}
		}
	}
	return el
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func rawString(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return strings.Trim(string(data), "\"")
}

func rawBool(data json.RawMessage) bool {
	if len(data) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "1":
			return true
		}
	}
	return false
}
