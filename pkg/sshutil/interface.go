package sshutil

import "context"

// CommandRunner is the contract the poller depends on for remote execution.
// Both the real Runner and mock implementations satisfy this interface.
//
// This interface enables testing of SSH-dependent code without requiring
// actual SSH connections.
type CommandRunner interface {
	// RunCommands executes the batch sequentially over one connection and
	// returns per-command results. A batch-level error means the connection
	// or authentication failed and no per-command results are available.
	RunCommands(ctx context.Context, commands []Command) (BatchResult, error)

	// Drop closes the current connection so the next batch reconnects.
	Drop()

	// Close shuts the runner down permanently.
	Close() error
}

var _ CommandRunner = (*Runner)(nil)
