package builder

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockCollaborator is a mock implementation of the Collaborator interface.
type MockCollaborator struct {
	mock.Mock
}

func (m *MockCollaborator) Clean(ctx context.Context, dir string, out io.Writer) error {
	args := m.Called(ctx, dir, out)
	return args.Error(0)
}

func (m *MockCollaborator) Build(ctx context.Context, dir string, params BuildParams, out io.Writer) error {
	args := m.Called(ctx, dir, params, out)
	return args.Error(0)
}

func (m *MockCollaborator) RunTest(ctx context.Context, dir, binary string, testArgs []string, emulator string, out io.Writer) (int, error) {
	args := m.Called(ctx, dir, binary, testArgs, emulator, out)
	return args.Int(0), args.Error(1)
}
