package action

import "time"

const defaultWait = 1000 * time.Millisecond

// Command is a validated, normalized interaction. Exactly one concrete type
// exists per Kind.
type Command interface {
	Kind() Kind
}

type BrowseTo struct{ URL string }

type Click struct {
	At     Point
	Button string
}

type DoubleClick struct{ At Point }

// Scroll pre-positions the pointer at At when set, then wheels by the deltas.
type Scroll struct {
	At     *Point
	DeltaX float64
	DeltaY float64
}

type Type struct{ Text string }

type Wait struct{ Duration time.Duration }

type Move struct{ To Point }

type Keypress struct{ Keys []string }

// Drag presses at Path[0], moves through the remaining points and releases.
type Drag struct{ Path []Point }

type TakeScreenshot struct{}

func (BrowseTo) Kind() Kind       { return KindBrowseTo }
func (Click) Kind() Kind          { return KindClick }
func (DoubleClick) Kind() Kind    { return KindDoubleClick }
func (Scroll) Kind() Kind         { return KindScroll }
func (Type) Kind() Kind           { return KindType }
func (Wait) Kind() Kind           { return KindWait }
func (Move) Kind() Kind           { return KindMove }
func (Keypress) Kind() Kind       { return KindKeypress }
func (Drag) Kind() Kind           { return KindDrag }
func (TakeScreenshot) Kind() Kind { return KindTakeScreenshot }

// Normalize validates a proposal against the parameters its kind requires and
// returns the typed command. Failures are *ValidationError.
func Normalize(a Action) (Command, error) {
	p := a.Params
	switch a.Kind {
	case KindBrowseTo:
		v, ok := p.Lookup("url")
		if !ok {
			return nil, missing(a.Kind, "url")
		}
		url, err := toString(v)
		if err != nil {
			return nil, invalid(a.Kind, "url", err)
		}
		if url == "" {
			return nil, missing(a.Kind, "url")
		}
		return BrowseTo{URL: url}, nil

	case KindClick:
		pt, err := requirePoint(a.Kind, p)
		if err != nil {
			return nil, err
		}
		button := "left"
		if v, ok := p.Lookup("button"); ok {
			if s, err := toString(v); err == nil && s != "" {
				button = s
			}
		}
		return Click{At: pt, Button: button}, nil

	case KindDoubleClick:
		pt, err := requirePoint(a.Kind, p)
		if err != nil {
			return nil, err
		}
		return DoubleClick{At: pt}, nil

	case KindMove:
		pt, err := requirePoint(a.Kind, p)
		if err != nil {
			return nil, err
		}
		return Move{To: pt}, nil

	case KindScroll:
		cmd := Scroll{}
		x, okX := p.Lookup("x")
		y, okY := p.Lookup("y")
		if okX && okY {
			fx, err := toFloat(x)
			if err != nil {
				return nil, invalid(a.Kind, "x", err)
			}
			fy, err := toFloat(y)
			if err != nil {
				return nil, invalid(a.Kind, "y", err)
			}
			cmd.At = &Point{X: fx, Y: fy}
		}
		var err error
		if cmd.DeltaX, err = optionalFloat(p, "scroll_x"); err != nil {
			return nil, invalid(a.Kind, "scroll_x", err)
		}
		if cmd.DeltaY, err = optionalFloat(p, "scroll_y"); err != nil {
			return nil, invalid(a.Kind, "scroll_y", err)
		}
		return cmd, nil

	case KindType:
		v, ok := p.Lookup("text")
		if !ok {
			return nil, missing(a.Kind, "text")
		}
		text, err := toString(v)
		if err != nil {
			return nil, invalid(a.Kind, "text", err)
		}
		return Type{Text: text}, nil

	case KindWait:
		v, ok := p.Lookup("ms")
		if !ok {
			return Wait{Duration: defaultWait}, nil
		}
		ms, err := toFloat(v)
		if err != nil {
			return nil, invalid(a.Kind, "ms", err)
		}
		if ms < 0 {
			ms = 0
		}
		return Wait{Duration: time.Duration(ms * float64(time.Millisecond))}, nil

	case KindKeypress:
		v, ok := p.Lookup("keys")
		if !ok {
			return nil, missing(a.Kind, "keys")
		}
		keys, err := toKeys(v)
		if err != nil {
			return nil, invalid(a.Kind, "keys", err)
		}
		return Keypress{Keys: keys}, nil

	case KindDrag:
		v, ok := p.Lookup("path")
		if !ok {
			return nil, missing(a.Kind, "path")
		}
		path, err := toPath(v)
		if err != nil {
			return nil, invalid(a.Kind, "path", err)
		}
		if len(path) == 0 {
			return nil, missing(a.Kind, "path")
		}
		return Drag{Path: path}, nil

	case KindTakeScreenshot:
		return TakeScreenshot{}, nil

	default:
		return nil, &ValidationError{Kind: a.Kind, Err: ErrUnknownKind}
	}
}

func requirePoint(kind Kind, p Params) (Point, error) {
	x, okX := p.Lookup("x")
	y, okY := p.Lookup("y")
	switch {
	case !okX && !okY:
		return Point{}, missing(kind, "x/y")
	case !okX:
		return Point{}, missing(kind, "x")
	case !okY:
		return Point{}, missing(kind, "y")
	}
	fx, err := toFloat(x)
	if err != nil {
		return Point{}, invalid(kind, "x", err)
	}
	fy, err := toFloat(y)
	if err != nil {
		return Point{}, invalid(kind, "y", err)
	}
	return Point{X: fx, Y: fy}, nil
}

func optionalFloat(p Params, name string) (float64, error) {
	v, ok := p.Lookup(name)
	if !ok {
		return 0, nil
	}
	return toFloat(v)
}
