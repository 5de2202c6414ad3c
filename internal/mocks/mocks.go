// internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/raidcc/internal/omsa"
)

// MockDriver is a testify mock of omsa.Driver. It is used where a test needs
// to assert the exact scope and arguments a workflow step hands the browser,
// or to inject driver failures the in-memory console cannot produce.
type MockDriver struct {
	mock.Mock
}

var _ omsa.Driver = (*MockDriver)(nil)

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockDriver) FramePresent(ctx context.Context, scope omsa.Scope, name string) (bool, error) {
	args := m.Called(ctx, scope, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockDriver) ElementPresent(ctx context.Context, scope omsa.Scope, selector string) (bool, error) {
	args := m.Called(ctx, scope, selector)
	return args.Bool(0), args.Error(1)
}

func (m *MockDriver) Click(ctx context.Context, scope omsa.Scope, selector string) error {
	args := m.Called(ctx, scope, selector)
	return args.Error(0)
}

func (m *MockDriver) SetValue(ctx context.Context, scope omsa.Scope, selector, value string) error {
	args := m.Called(ctx, scope, selector, value)
	return args.Error(0)
}

// Query returns the configured elements. A nil first return value is
// treated as no matches.
func (m *MockDriver) Query(ctx context.Context, scope omsa.Scope, selector string) ([]omsa.Element, error) {
	args := m.Called(ctx, scope, selector)
	var els []omsa.Element
	if v := args.Get(0); v != nil {
		els = v.([]omsa.Element)
	}
	return els, args.Error(1)
}

// Invoke records the variadic arguments as a single slice so expectations
// can match them with mock.Anything or an exact []interface{}.
func (m *MockDriver) Invoke(ctx context.Context, scope omsa.Scope, function string, fnArgs ...interface{}) error {
	args := m.Called(ctx, scope, function, fnArgs)
	return args.Error(0)
}
