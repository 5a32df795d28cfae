package sshutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/rileyhilliard/edgewatch/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Command is one remote shell command in a poll batch.
type Command struct {
	// Name identifies the command to parsers and consumers ("uptime",
	// "meminfo", ...). Names must be unique within a batch.
	Name string

	// Line is the exact shell command sent to the device.
	Line string
}

// CommandResult holds one command's raw output or its failure.
type CommandResult struct {
	Output string
	Err    error
}

// BatchResult maps command name to its result. Every command in the batch
// gets an entry; a command that timed out has Err set and Output empty.
type BatchResult map[string]CommandResult

// Runner executes command batches against a single device over a reused SSH
// connection. The connection is opened lazily on first use and replaced when
// it goes stale. A Runner is not safe for concurrent RunCommands calls by
// design: the caller serializes polls so only one session batch ever runs
// against the device's shell at a time.
type Runner struct {
	opts           Options
	commandTimeout time.Duration

	mu     sync.Mutex
	client *Client
	closed bool
}

// NewRunner creates a runner for the device described by opts.
// commandTimeout bounds each individual command; zero means 10s.
func NewRunner(opts Options, commandTimeout time.Duration) *Runner {
	if commandTimeout == 0 {
		commandTimeout = 10 * time.Second
	}
	return &Runner{
		opts:           opts,
		commandTimeout: commandTimeout,
	}
}

// RunCommands executes the batch sequentially over one connection.
//
// Per-command failures (timeouts, non-zero exits) land in the BatchResult and
// do not abort the batch. A failure to obtain a session means the connection
// itself is broken: the connection is torn down and the whole batch fails
// with an SSH or auth error.
func (r *Runner) RunCommands(ctx context.Context, commands []Command) (BatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errors.New(errors.ErrSSH,
			"Runner is closed",
			"The poller was shut down; no further commands can run.")
	}

	client, err := r.connectLocked()
	if err != nil {
		return nil, err
	}

	results := make(BatchResult, len(commands))

	for _, cmd := range commands {
		select {
		case <-ctx.Done():
			return nil, errors.WrapWithCode(ctx.Err(), errors.ErrSSH,
				fmt.Sprintf("Poll cycle cancelled while running '%s'", cmd.Name),
				"")
		default:
		}

		output, err := r.runOne(ctx, client, cmd)
		if err != nil {
			if errors.IsCode(err, errors.ErrSSH) {
				// Session-level failure: the connection is gone. Tear it
				// down so the next poll reconnects, and fail the batch.
				r.dropLocked()
				return nil, err
			}
			// Timeouts and non-zero exits degrade only this command.
			results[cmd.Name] = CommandResult{Err: err}
			continue
		}
		results[cmd.Name] = CommandResult{Output: output}
	}

	return results, nil
}

// runOne executes a single command in its own session with a bounded timeout.
func (r *Runner) runOne(ctx context.Context, client *Client, cmd Command) (string, error) {
	session, err := client.Client.NewSession()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been dropped by the router.")
	}
	defer session.Close()

	cmdCtx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	type result struct {
		output []byte
		err    error
	}
	resultCh := make(chan result, 1)

	go func() {
		out, err := session.CombinedOutput(cmd.Line)
		resultCh <- result{out, err}
	}()

	select {
	case <-cmdCtx.Done():
		// Close the session to unblock the goroutine. The connection itself
		// may still be fine; the next command decides that.
		_ = session.Close()
		return "", errors.WrapWithCode(cmdCtx.Err(), errors.ErrTimeout,
			fmt.Sprintf("Command '%s' timed out after %s", cmd.Name, r.commandTimeout),
			"The router may be overloaded. Consider raising poll.command_timeout.")
	case res := <-resultCh:
		if res.err != nil {
			// A non-zero exit means the command ran: the session survived
			// it. The vyatta wrapper exits non-zero on some firmware
			// versions while still printing usable output.
			var exitErr *ssh.ExitError
			if stderrors.As(res.err, &exitErr) {
				if len(res.output) > 0 {
					return string(res.output), nil
				}
				return "", errors.WrapWithCode(res.err, errors.ErrExec,
					fmt.Sprintf("Command '%s' exited with status %d", cmd.Name, exitErr.ExitStatus()),
					"Check if the command exists on this firmware version.")
			}
			return "", errors.WrapWithCode(res.err, errors.ErrSSH,
				fmt.Sprintf("Command '%s' failed to execute", cmd.Name),
				"Connection may have been dropped by the router.")
		}
		return string(res.output), nil
	}
}

// connectLocked returns the live connection, dialing if needed.
// Caller must hold r.mu.
func (r *Runner) connectLocked() (*Client, error) {
	if r.client != nil {
		if r.client.IsAlive() {
			return r.client, nil
		}
		r.dropLocked()
	}

	client, err := Dial(r.opts)
	if err != nil {
		return nil, err
	}
	r.client = client
	return client, nil
}

// dropLocked closes and forgets the current connection.
// Caller must hold r.mu.
func (r *Runner) dropLocked() {
	if r.client != nil {
		_ = r.client.Close()
		r.client = nil
	}
}

// Drop closes the current connection so the next batch reconnects.
func (r *Runner) Drop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked()
}

// Connected reports whether a connection is currently held.
func (r *Runner) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client != nil
}

// Close shuts the runner down permanently.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked()
	r.closed = true
	return nil
}
