package mocks

import (
	"github.com/brettbedarf/nodetree"
	"github.com/stretchr/testify/mock"
)

// MockNode implements nodetree.Node and nodetree.Checker for testing across packages.
// The directory binding is real state so save/load paths behave normally.
type MockNode struct {
	mock.Mock
	nodetree.Binding
}

func (m *MockNode) NodeType() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockNode) EncodeFields() (map[string]nodetree.Value, error) {
	args := m.Called()

	// Handle function return types (for tests that build fields lazily)
	if fn, ok := args.Get(0).(func() map[string]nodetree.Value); ok {
		return fn(), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]nodetree.Value), args.Error(1)
}

func (m *MockNode) Check() error {
	args := m.Called()
	return args.Error(0)
}

// MockRequirer is a MockNode that also declares required children
type MockRequirer struct {
	MockNode
}

func (m *MockRequirer) RequiredChildren() map[string]string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(map[string]string)
}
