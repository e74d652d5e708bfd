package grid

import (
	"github.com/stretchr/testify/mock"
)

// GridMock is a testify mock of the grid collaborator, shared by the
// package tests and the orchestrator tests.
type GridMock struct {
	mock.Mock
}

func NewGridMock() *GridMock {
	return &GridMock{}
}

func (m *GridMock) GetFilterModel() map[string]NativeFilter {
	args := m.Called()
	return args.Get(0).(map[string]NativeFilter)
}

func (m *GridMock) SetFilterModel(model map[string]NativeFilter) {
	m.Called(model)
}

func (m *GridMock) GetColumn(id string) (Column, bool) {
	args := m.Called(id)
	return args.Get(0).(Column), args.Bool(1)
}

// FakeGrid is a minimal in-memory grid for tests that only need state
// to round trip, without expectation bookkeeping.
type FakeGrid struct {
	Model   map[string]NativeFilter
	Columns map[string]Column
}

func NewFakeGrid() *FakeGrid {
	return &FakeGrid{
		Model:   map[string]NativeFilter{},
		Columns: map[string]Column{},
	}
}

func (g *FakeGrid) GetFilterModel() map[string]NativeFilter {
	out := make(map[string]NativeFilter, len(g.Model))
	for k, v := range g.Model {
		out[k] = v
	}
	return out
}

func (g *FakeGrid) SetFilterModel(model map[string]NativeFilter) {
	g.Model = model
}

func (g *FakeGrid) GetColumn(id string) (Column, bool) {
	c, ok := g.Columns[id]
	return c, ok
}
