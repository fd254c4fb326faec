package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/polzovatel/operator-agent/internal/action"
	"github.com/polzovatel/operator-agent/internal/llm"
	"github.com/polzovatel/operator-agent/internal/snapshot"
)

type MockBrowser struct {
	mock.Mock
}

func (m *MockBrowser) obs(args mock.Arguments) (snapshot.Observation, error) {
	return args.Get(0).(snapshot.Observation), args.Error(1)
}

func (m *MockBrowser) BrowseTo(ctx context.Context, url string) (snapshot.Observation, error) {
	return m.obs(m.Called(ctx, url))
}

func (m *MockBrowser) Click(ctx context.Context, at action.Point, button string) (snapshot.Observation, error) {
	return m.obs(m.Called(ctx, at, button))
}

func (m *MockBrowser) DoubleClick(ctx context.Context, at action.Point) (snapshot.Observation, error) {
	return m.obs(m.Called(ctx, at))
}

func (m *MockBrowser) Scroll(ctx context.Context, at *action.Point, dx, dy float64) (snapshot.Observation, error) {
	return m.obs(m.Called(ctx, at, dx, dy))
}

func (m *MockBrowser) Type(ctx context.Context, text string) (snapshot.Observation, error) {
	return m.obs(m.Called(ctx, text))
}

func (m *MockBrowser) Wait(ctx context.Context, d time.Duration) (snapshot.Observation, error) {
	return m.obs(m.Called(ctx, d))
}

func (m *MockBrowser) Move(ctx context.Context, to action.Point) (snapshot.Observation, error) {
	return m.obs(m.Called(ctx, to))
}

func (m *MockBrowser) Keypress(ctx context.Context, keys []string) (snapshot.Observation, error) {
	return m.obs(m.Called(ctx, keys))
}

func (m *MockBrowser) Drag(ctx context.Context, path []action.Point) (snapshot.Observation, error) {
	return m.obs(m.Called(ctx, path))
}

func (m *MockBrowser) TakeScreenshot(ctx context.Context) (snapshot.Observation, error) {
	return m.obs(m.Called(ctx))
}

type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) Next(ctx context.Context, state State) (action.Action, error) {
	args := m.Called(ctx, state)
	return args.Get(0).(action.Action), args.Error(1)
}

type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(llm.Response), args.Error(1)
}

func (m *MockLLM) Name() string { return "mock" }

func shot(n int) snapshot.Observation {
	return snapshot.Observation{ImagePath: fmt.Sprintf("screenshots/screenshot_%d.png", n)}
}

func click(x, y float64, alts ...action.Point) action.Action {
	a := action.Action{
		Kind:      action.KindClick,
		Params:    action.Params{"x": x, "y": y},
		Rationale: "click the element",
	}
	if len(alts) > 0 {
		a.Element = &action.ElementDetails{AlternativeCoordinates: alts}
	}
	return a
}
