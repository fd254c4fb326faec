package agent

import (
	"fmt"
	"strings"

	"github.com/polzovatel/operator-agent/internal/action"
	"github.com/polzovatel/operator-agent/internal/snapshot"
)

const rationaleLimit = 100

// Outcome is what became of a recorded proposal.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeExecuted  Outcome = "executed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCompleted Outcome = "completed" // proposed alongside goal_completed, never dispatched
)

// HistoryEntry is one proposal from the reasoning service and what happened to it.
type HistoryEntry struct {
	Step     int           `json:"step"`
	Action   action.Action `json:"action"`
	Outcome  Outcome       `json:"outcome"`
	Attempts int           `json:"attempts,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Summary is the one-line form used when feeding history back to the model.
func (e HistoryEntry) Summary() string {
	rationale := strings.TrimSpace(e.Action.Rationale)
	if rationale == "" {
		rationale = "No reasoning provided"
	}
	return fmt.Sprintf("%s - %s", e.Action.Describe(), snapshot.Truncate(rationale, rationaleLimit))
}

// History is the append-only record of a run.
type History struct {
	entries []HistoryEntry
}

// Append records e and returns its index for a later Resolve.
func (h *History) Append(e HistoryEntry) int {
	h.entries = append(h.entries, e)
	return len(h.entries) - 1
}

// Resolve sets the outcome of a previously appended entry.
func (h *History) Resolve(i int, outcome Outcome, attempts int, err error) {
	if i < 0 || i >= len(h.entries) {
		return
	}
	h.entries[i].Outcome = outcome
	h.entries[i].Attempts = attempts
	if err != nil {
		h.entries[i].Error = err.Error()
	}
}

func (h *History) Len() int { return len(h.entries) }

// Entries returns a copy in chronological order.
func (h *History) Entries() []HistoryEntry {
	return append([]HistoryEntry(nil), h.entries...)
}

// Recent returns at most n entries, most recent first.
func (h *History) Recent(n int) []HistoryEntry {
	if n <= 0 || len(h.entries) == 0 {
		return nil
	}
	if n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]HistoryEntry, 0, n)
	for i := len(h.entries) - 1; i >= len(h.entries)-n; i-- {
		out = append(out, h.entries[i])
	}
	return out
}

// RenderHistory formats entries (already most recent first) for a request.
func RenderHistory(entries []HistoryEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nAction History (most recent first):\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, e.Summary())
	}
	return b.String()
}
