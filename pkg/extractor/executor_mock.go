package extractor

import (
	"context"
)

// MockExecutor is a canned-output Executor for tests.
type MockExecutor struct {
	MockOutput []byte
	MockError  error

	// Calls records the argument lists of every invocation.
	Calls [][]string
}

func (m *MockExecutor) Run(ctx context.Context, workspacePath string, args ...string) ([]byte, error) {
	m.Calls = append(m.Calls, args)
	return m.MockOutput, m.MockError
}
