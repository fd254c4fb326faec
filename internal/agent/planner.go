package agent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/operator-agent/internal/action"
	"github.com/polzovatel/operator-agent/internal/llm"
	"github.com/polzovatel/operator-agent/internal/snapshot"
)

// ErrMalformedDecision is returned when the reasoning service answers with
// something that is not a decision object.
var ErrMalformedDecision = errors.New("malformed decision")

var systemPrompt = fmt.Sprintf(systemPromptTemplate, kindList())

const systemPromptTemplate = `You are a browser automation agent. You receive a screenshot of a web page together with
structured DOM information, and you decide the single next action that moves toward the goal.

INTERACTION RULES:
1. Click an input field to focus it before typing into it.
2. Typical sequences: click field -> type text -> click submit or press Enter.
3. After typing you usually need to submit with a button click or the Enter key.

EXPLORING THE PAGE:
1. If the element you need is not visible, scroll (scroll_y between 300 and 500) and look again.
2. Navigation and search bars are usually at the top, secondary actions often below the first viewport.
3. After scrolling, study the newly visible content before acting.

USING HISTORY:
1. Do not repeat strategies that already failed; try another area or approach.
2. Build on the actions that worked.

USING DOM INFORMATION:
1. Prefer the element coordinates from the DOM listing over guessing from the image.
2. Coordinates in the listing are element centers, relative to the current viewport.
3. Take viewport size, scroll position and device pixel ratio into account.

Answer with one JSON object:
{
  "reasoning": "what you observe and why you choose the action",
  "action": "%s",
  "params": {
    "url": "for browse_to",
    "x": 100, "y": 200,
    "button": "left | right | middle (click only)",
    "scroll_x": 0, "scroll_y": 300,
    "text": "for type",
    "ms": 1000,
    "keys": ["Control", "A"],
    "path": [[x1, y1], [x2, y2]]
  },
  "element_details": {
    "type": "button, link, input, ...",
    "visual_description": "how the element looks",
    "location": "where it is on the page",
    "context": "what surrounds it",
    "confidence": 0.9,
    "alternative_coordinates": [{"x": 105, "y": 205}, {"x": 95, "y": 195}]
  },
  "goal_completed": false
}

For clicks always provide alternative_coordinates slightly offset from the main point.
Set goal_completed to true only when the goal has been achieved.`

const firstActionHint = "This is the first action to take. If you need to navigate to a website, use the browse_to action."

// Planner maps the current state to the next proposed action.
type Planner interface {
	Next(ctx context.Context, state State) (action.Action, error)
}

// State is everything a single decision request is built from.
type State struct {
	Goal        string
	Step        int
	Observation snapshot.Observation
	LastAction  *action.Action
	// History is bounded and ordered most recent first.
	History []HistoryEntry
}

type visionPlanner struct {
	llm    llm.Client
	limits snapshot.Limits
	logger zerolog.Logger
}

func NewPlanner(client llm.Client, limits snapshot.Limits, logger zerolog.Logger) Planner {
	return &visionPlanner{llm: client, limits: limits, logger: logger}
}

func (p *visionPlanner) Next(ctx context.Context, state State) (action.Action, error) {
	msg := llm.Message{Role: "user", Content: p.prompt(state)}
	if img, err := encodeImage(state.Observation.ImagePath); err != nil {
		p.logger.Warn().Err(err).Str("path", state.Observation.ImagePath).Msg("screenshot unavailable, sending text only")
	} else {
		msg.Images = []llm.Image{img}
	}

	resp, err := p.llm.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{msg},
		Temperature: 0.0,
		MaxTokens:   1000,
		JSON:        true,
	})
	if err != nil {
		return action.Action{}, fmt.Errorf("reasoning request: %w", err)
	}
	dec, err := parseDecision(resp.Text)
	if err != nil {
		return action.Action{}, fmt.Errorf("%w: raw=%q", err, truncateTextForDebug(resp.Text, 300))
	}
	if !dec.Kind.Valid() && !dec.GoalCompleted {
		p.logger.Warn().Str("action", string(dec.Kind)).Int("step", state.Step).Msg("model proposed an unknown action")
	}
	return dec, nil
}

func kindList() string {
	kinds := action.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, " | ")
}

func (p *visionPlanner) prompt(state State) string {
	meta := p.metadata(state.Observation)

	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\n", state.Goal)
	b.WriteString(snapshot.Describe(*meta, p.limits))
	b.WriteString("\nAnalyze this screenshot and recommend the next action to take.")
	if state.LastAction != nil {
		raw, err := json.Marshal(state.LastAction)
		if err != nil {
			raw = []byte(state.LastAction.Describe())
		}
		fmt.Fprintf(&b, "\n\nLast action: %s", raw)
	} else {
		b.WriteString("\n\n" + firstActionHint)
	}
	b.WriteString(RenderHistory(state.History))
	return b.String()
}

// metadata prefers the in-memory capture, then the persisted sibling file,
// then default geometry.
func (p *visionPlanner) metadata(obs snapshot.Observation) *snapshot.Metadata {
	if obs.Meta != nil {
		return obs.Meta
	}
	if obs.ImagePath != "" {
		if m, err := snapshot.LoadMetadata(obs.ImagePath); err == nil {
			return m
		} else {
			p.logger.Debug().Err(err).Str("path", obs.MetadataPath()).Msg("metadata unavailable, using defaults")
		}
	}
	return snapshot.DefaultMetadata(time.Now())
}

func encodeImage(path string) (llm.Image, error) {
	if path == "" {
		return llm.Image{}, errors.New("no screenshot path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return llm.Image{}, err
	}
	return llm.Image{MediaType: "image/png", Data: base64.StdEncoding.EncodeToString(data)}, nil
}

func parseDecision(text string) (action.Action, error) {
	jsonStr, err := extractJSON(text)
	if err != nil {
		return action.Action{}, fmt.Errorf("%w: %v", ErrMalformedDecision, err)
	}
	dec, err := action.Decode([]byte(jsonStr))
	if err != nil {
		return action.Action{}, fmt.Errorf("%w: %v", ErrMalformedDecision, err)
	}
	return dec, nil
}

// extractJSON returns the first balanced top-level object in text, skipping
// any prose or code fences around it.
func extractJSON(text string) (string, error) {
	depth := 0
	start := -1
	inStr := false
	esc := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if esc {
			esc = false
			continue
		}
		switch ch {
		case '\\':
			if inStr {
				esc = true
			}
		case '"':
			if depth > 0 {
				inStr = !inStr
			}
		case '{':
			if !inStr {
				if depth == 0 {
					start = i
				}
				depth++
			}
		case '}':
			if !inStr && depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					return text[start : i+1], nil
				}
			}
		}
	}
	return "", fmt.Errorf("json not found")
}

func truncateTextForDebug(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
