// Package mocks provides test doubles for the uplift ports and project model.
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/uplift/internal/ports"
)

// CommandRunner is a thread-safe test double for ports.CommandRunner.
// Results are registered per command line; the last registration wins.
type CommandRunner struct {
	mu       sync.RWMutex
	results  map[string]ports.CommandResult
	errors   map[string]error
	handlers map[string]func() (ports.CommandResult, error)
	calls    []ports.CommandCall
}

var _ ports.CommandRunner = (*CommandRunner)(nil)

// NewCommandRunner creates a new CommandRunner mock.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{
		results:  make(map[string]ports.CommandResult),
		errors:   make(map[string]error),
		handlers: make(map[string]func() (ports.CommandResult, error)),
	}
}

// AddResult registers an expected command and its result.
func (m *CommandRunner) AddResult(command string, args []string, result ports.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[key(command, args)] = result
}

// AddError registers an expected command that should return an error.
func (m *CommandRunner) AddError(command string, args []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[key(command, args)] = err
}

// AddHandler registers a function that runs in place of the command, for
// tools whose side effects a test needs to simulate.
func (m *CommandRunner) AddHandler(command string, args []string, fn func() (ports.CommandResult, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[key(command, args)] = fn
}

// Run implements ports.CommandRunner.
func (m *CommandRunner) Run(_ context.Context, command string, args ...string) (ports.CommandResult, error) {
	k := key(command, args)

	m.mu.Lock()
	m.calls = append(m.calls, ports.CommandCall{Command: command, Args: args})
	handler := m.handlers[k]
	m.mu.Unlock()

	if handler != nil {
		return handler()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.errors[k]; ok {
		return ports.CommandResult{}, err
	}
	if result, ok := m.results[k]; ok {
		return result, nil
	}
	return ports.CommandResult{}, fmt.Errorf("no mock result for command: %s", k)
}

// Calls returns all recorded command invocations.
func (m *CommandRunner) Calls() []ports.CommandCall {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := make([]ports.CommandCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallsTo returns the recorded invocations of one tool.
func (m *CommandRunner) CallsTo(command string) []ports.CommandCall {
	var out []ports.CommandCall
	for _, c := range m.Calls() {
		if c.Command == command {
			out = append(out, c)
		}
	}
	return out
}

func key(command string, args []string) string {
	return ports.CommandCall{Command: command, Args: args}.String()
}
