// Package testing provides mock implementations of sshutil interfaces for
// testing SSH-dependent code without real connections.
package testing

import (
	"context"
	"sync"

	"github.com/rileyhilliard/edgewatch/pkg/sshutil"
)

// MockRunner simulates a device's command execution for tests.
// Responses are registered per command name; unregistered commands return
// empty output, as a quiet device would.
type MockRunner struct {
	mu        sync.Mutex
	responses map[string]sshutil.CommandResult
	batchErr  error
	batches   [][]sshutil.Command
	dropped   int
	closed    bool
}

// NewMockRunner creates an empty mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		responses: make(map[string]sshutil.CommandResult),
	}
}

// Respond registers canned output for a command name.
func (m *MockRunner) Respond(name, output string) *MockRunner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[name] = sshutil.CommandResult{Output: output}
	return m
}

// FailCommand makes a single command fail with the given error.
func (m *MockRunner) FailCommand(name string, err error) *MockRunner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[name] = sshutil.CommandResult{Err: err}
	return m
}

// FailBatch makes the next RunCommands calls fail wholesale, as a connection
// or auth failure would.
func (m *MockRunner) FailBatch(err error) *MockRunner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchErr = err
	return m
}

// RunCommands implements sshutil.CommandRunner.
func (m *MockRunner) RunCommands(ctx context.Context, commands []sshutil.Command) (sshutil.BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.batches = append(m.batches, commands)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.batchErr != nil {
		return nil, m.batchErr
	}

	results := make(sshutil.BatchResult, len(commands))
	for _, cmd := range commands {
		if resp, ok := m.responses[cmd.Name]; ok {
			results[cmd.Name] = resp
		} else {
			results[cmd.Name] = sshutil.CommandResult{}
		}
	}
	return results, nil
}

// Drop implements sshutil.CommandRunner.
func (m *MockRunner) Drop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped++
}

// Close implements sshutil.CommandRunner.
func (m *MockRunner) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Batches returns every command batch observed, in call order.
func (m *MockRunner) Batches() [][]sshutil.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

// CallCount returns how many times RunCommands was invoked.
func (m *MockRunner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

// DropCount returns how many times the connection was dropped.
func (m *MockRunner) DropCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Closed reports whether Close was called.
func (m *MockRunner) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ sshutil.CommandRunner = (*MockRunner)(nil)
