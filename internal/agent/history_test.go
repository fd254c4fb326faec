package agent

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polzovatel/operator-agent/internal/action"
)

var snapshotTime = time.Unix(1700000000, 0)

func TestHistory_RecentIsBoundedAndNewestFirst(t *testing.T) {
	var h History
	for i := 1; i <= 10; i++ {
		h.Append(HistoryEntry{Step: i, Action: screenshotOnly()})
	}

	recent := h.Recent(5)
	require.Len(t, recent, 5)
	for i, e := range recent {
		assert.Equal(t, 10-i, e.Step)
	}
	assert.Len(t, h.Recent(50), 10)
	assert.Nil(t, h.Recent(0))

	rendered := RenderHistory(recent)
	assert.Equal(t, 5, strings.Count(rendered, "take_screenshot"))
	assert.True(t, strings.HasPrefix(rendered, "\n\nAction History (most recent first):\n1. "))
}

func TestHistory_Resolve(t *testing.T) {
	var h History
	idx := h.Append(HistoryEntry{Step: 1, Action: click(1, 2), Outcome: OutcomePending})
	h.Resolve(idx, OutcomeFailed, 3, errors.New("boom"))
	h.Resolve(7, OutcomeExecuted, 1, nil)

	entries := h.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, OutcomeFailed, entries[0].Outcome)
	assert.Equal(t, 3, entries[0].Attempts)
	assert.Equal(t, "boom", entries[0].Error)

	entries[0].Step = 99
	assert.Equal(t, 1, h.Entries()[0].Step)
}

func TestHistoryEntry_Summary(t *testing.T) {
	long := strings.Repeat("r", 150)
	tests := []struct {
		name  string
		entry HistoryEntry
		want  string
	}{
		{
			name:  "click",
			entry: HistoryEntry{Action: click(10, 20)},
			want:  "click at (10, 20) - click the element",
		},
		{
			name:  "long rationale",
			entry: HistoryEntry{Action: action.Action{Kind: action.KindScroll, Params: action.Params{"scroll_y": 300}, Rationale: long}},
			want:  "scroll by (0, 300) - " + strings.Repeat("r", 100) + "...",
		},
		{
			name:  "no rationale",
			entry: HistoryEntry{Action: action.Action{Kind: action.KindBrowseTo, Params: action.Params{"url": "https://example.com"}}},
			want:  "browse_to: https://example.com - No reasoning provided",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.Summary())
		})
	}
}

func TestRenderHistory_Empty(t *testing.T) {
	assert.Empty(t, RenderHistory(nil))
}
