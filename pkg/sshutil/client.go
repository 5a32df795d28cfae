package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/edgewatch/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Client wraps an SSH connection with additional metadata.
type Client struct {
	*ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)
}

// Options describe how to reach and authenticate to a device.
type Options struct {
	// Host is a hostname, IP, or ~/.ssh/config alias.
	Host string

	// Port overrides the SSH port. Zero means "use SSH config or 22".
	Port int

	// User overrides the login user. Empty means "use SSH config or $USER".
	User string

	// Password enables password authentication when non-empty. EdgeOS
	// devices default to password auth, so this is the common path.
	Password string

	// Timeout bounds the TCP dial and SSH handshake.
	Timeout time.Duration

	// InsecureHostKey skips known_hosts verification.
	InsecureHostKey bool
}

// Dial establishes an SSH connection to the device described by opts.
// Connection settings not given in opts are resolved from ~/.ssh/config when
// available. Authentication rejections surface as errors.ErrAuth; everything
// else (routing, refused, timeout) surfaces as errors.ErrSSH so callers can
// apply different retry policies.
func Dial(opts Options) (*Client, error) {
	settings := resolveSSHSettings(opts)

	config, err := buildSSHConfig(opts, settings)
	if err != nil {
		var ewErr *errors.Error
		if stderrors.As(err, &ewErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't set up SSH for '%s'", opts.Host),
			"Check your credentials and keys")
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	address := settings.address()
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", opts.Host, address),
			suggestionForDialError(err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()

		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return nil, errors.New(errors.ErrSSH,
				hostKeyErr.Error(),
				hostKeyErr.Suggestion())
		}

		if isAuthFailure(err) {
			return nil, errors.WrapWithCode(err, errors.ErrAuth,
				fmt.Sprintf("'%s' rejected the credentials", opts.Host),
				"Check the username and password in your config. EdgeOS defaults to user 'ubnt'.")
		}

		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", opts.Host),
			"Something went wrong during SSH setup. Try: ssh <host>")
	}

	client := ssh.NewClient(sshConn, chans, reqs)
	return &Client{
		Client:  client,
		Host:    opts.Host,
		Address: address,
	}, nil
}

// Validate opens a connection with the given options and immediately closes
// it. Used to verify credentials before writing a config.
func Validate(opts Options) error {
	client, err := Dial(opts)
	if err != nil {
		return err
	}
	return client.Close()
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetHost returns the original host/alias used to connect.
func (c *Client) GetHost() string {
	return c.Host
}

// GetAddress returns the resolved host:port address.
func (c *Client) GetAddress() string {
	return c.Address
}

// IsAlive checks connection liveness with a global keepalive request.
// Cheaper than opening a session (~100-200ms savings).
func (c *Client) IsAlive() bool {
	if c.Client == nil {
		return false
	}
	_, _, err := c.Client.SendRequest("keepalive@openssh.com", true, nil)
	return err == nil
}

// isAuthFailure reports whether a handshake error means the server rejected
// our credentials rather than the connection itself failing.
func isAuthFailure(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "unable to authenticate") ||
		strings.Contains(errStr, "no supported methods remain") ||
		strings.Contains(errStr, "permission denied")
}

// sshSettings holds resolved SSH connection parameters.
type sshSettings struct {
	hostname     string
	port         string
	user         string
	identityFile string
}

// address returns the host:port string for dialing.
func (s *sshSettings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// matchWarningOnce ensures the SSH config Match directive warning is only shown once per process.
var matchWarningOnce sync.Once

// WarningHandler is a function that handles warning messages.
// If nil, warnings are silently dropped.
var WarningHandler func(message string)

func emitWarning(message string) {
	if WarningHandler != nil {
		WarningHandler(message)
	}
}

// resolveSSHSettings merges opts with ~/.ssh/config entries for the host.
// Explicit opts always win over config file values.
func resolveSSHSettings(opts Options) *sshSettings {
	settings := &sshSettings{
		hostname: opts.Host,
		port:     "22",
		user:     currentUser(),
	}

	// Try to load from SSH config
	sshConfigPath := filepath.Join(homeDir(), ".ssh", "config")

	// Preprocess the config to handle Match directives: the
	// kevinburke/ssh_config library doesn't support Match, so only content
	// before the first Match block is parsed.
	content, matchLine, err := preprocessSSHConfig(sshConfigPath)
	if err == nil {
		if cfg, decErr := ssh_config.Decode(bytes.NewReader(content)); decErr == nil {
			hostFound := false

			if hostname, _ := cfg.Get(opts.Host, "HostName"); hostname != "" {
				settings.hostname = hostname
				hostFound = true
			}
			if port, _ := cfg.Get(opts.Host, "Port"); port != "" {
				settings.port = port
				hostFound = true
			}
			if user, _ := cfg.Get(opts.Host, "User"); user != "" {
				settings.user = user
				hostFound = true
			}
			if identity, _ := cfg.Get(opts.Host, "IdentityFile"); identity != "" {
				settings.identityFile = expandPath(identity)
				hostFound = true
			}

			if matchLine > 0 && !hostFound {
				matchWarningOnce.Do(func() {
					emitWarning(fmt.Sprintf(
						"Host '%s' not found in SSH config (config has a Match block at line %d that may hide later entries).",
						opts.Host, matchLine))
				})
			}
		}
	}

	// Explicit options override SSH config
	if opts.Port != 0 {
		settings.port = strconv.Itoa(opts.Port)
	}
	if opts.User != "" {
		settings.user = opts.User
	}

	return settings
}

// buildSSHConfig creates an SSH client config with authentication methods.
// Password auth comes first when configured; agent and key-file auth follow
// so key-based setups keep working without a stored password.
func buildSSHConfig(opts Options, settings *sshSettings) (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	if opts.Password != "" {
		authMethods = append(authMethods, ssh.Password(opts.Password))
		// EdgeOS sometimes runs with ChallengeResponseAuthentication only.
		authMethods = append(authMethods, ssh.KeyboardInteractive(
			func(name, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = opts.Password
				}
				return answers, nil
			}))
	}

	if agentAuth := sshAgentAuth(); agentAuth != nil {
		authMethods = append(authMethods, agentAuth)
	}

	if settings.identityFile != "" {
		if keyAuth, err := keyFileAuth(settings.identityFile); err == nil {
			authMethods = append(authMethods, keyAuth)
		}
	}

	defaultKeys := []string{
		filepath.Join(homeDir(), ".ssh", "id_ed25519"),
		filepath.Join(homeDir(), ".ssh", "id_rsa"),
		filepath.Join(homeDir(), ".ssh", "id_ecdsa"),
	}
	for _, keyPath := range defaultKeys {
		if keyPath == settings.identityFile {
			continue // Already tried this one
		}
		if keyAuth, err := keyFileAuth(keyPath); err == nil {
			authMethods = append(authMethods, keyAuth)
		}
	}

	if len(authMethods) == 0 {
		return nil, errors.New(errors.ErrAuth,
			"No SSH auth methods available",
			"Set device.password in your config, or load a key: ssh-add -l")
	}

	var hostKeyCallback ssh.HostKeyCallback
	if opts.InsecureHostKey {
		hostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // User explicitly disabled host key checking
	} else {
		knownHostsPath := filepath.Join(homeDir(), ".ssh", "known_hosts")
		var err error
		hostKeyCallback, err = createHostKeyCallback(knownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &ssh.ClientConfig{
		User:            settings.user,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}, nil
}

// agentConn holds the reusable SSH agent connection.
var (
	agentConn     net.Conn
	agentClient   agent.ExtendedAgent
	agentConnOnce sync.Once
)

// sshAgentAuth returns an auth method using the SSH agent if available.
// The agent connection is reused across multiple SSH connections.
// Returns nil if the agent has no keys loaded.
func sshAgentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	agentConnOnce.Do(func() {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return
		}
		agentConn = conn
		agentClient = agent.NewClient(conn)
	})

	if agentClient == nil {
		return nil
	}

	// Only return agent auth if the agent actually has keys.
	// An empty agent causes auth failures when placed before other methods.
	signers, err := agentClient.Signers()
	if err != nil || len(signers) == 0 {
		return nil
	}

	return ssh.PublicKeysCallback(agentClient.Signers)
}

// CloseAgent closes the SSH agent connection if one is open.
// This should be called when the application is shutting down.
func CloseAgent() {
	if agentConn != nil {
		agentConn.Close()
	}
}

// keyFileAuth returns an auth method using a private key file.
func keyFileAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, err
	}

	return ssh.PublicKeys(signer), nil
}

// Helper functions

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH enabled on the router? Check Config Tree > service > ssh"
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "i/o timeout") {
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

// HostKeyMismatchError provides helpful context when known_hosts verification fails.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns actionable steps to fix the host key mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	var wantTypes []string
	for _, k := range e.Want {
		wantTypes = append(wantTypes, k.Key.Type())
	}
	wantStr := "unknown"
	if len(wantTypes) > 0 {
		wantStr = strings.Join(wantTypes, ", ")
	}

	return fmt.Sprintf(
		"The router's host key doesn't match what's in known_hosts.\n"+
			"  Known types: %s\n"+
			"  Server sent: %s\n\n"+
			"  If the router was reset or reflashed, remove the old entry:\n"+
			"    ssh-keygen -R %s\n\n"+
			"  Or re-scan it:\n"+
			"    ssh-keyscan -t rsa,ecdsa,ed25519 %s >> %s",
		wantStr, e.ReceivedType, host, host, e.KnownHosts)
}

// preprocessSSHConfig reads the SSH config and returns content up to the first Match directive.
// Returns the original content if no Match directive is found.
// Also returns the line number where Match was found (0 if not found).
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	matchLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		// Match directive check (case insensitive)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			matchLine = i + 1 // 1-indexed line number
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), matchLine, nil
}

// createHostKeyCallback wraps the knownhosts callback to provide better error messages.
func createHostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	// Check if known_hosts exists, create if it doesn't
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		dir := filepath.Dir(knownHostsPath)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create .ssh directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, []byte{}, 0600); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts: %w", err)
		}
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		if err != nil {
			var keyErr *knownhosts.KeyError
			if stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
				return &HostKeyMismatchError{
					Hostname:     hostname,
					ReceivedType: key.Type(),
					KnownHosts:   knownHostsPath,
					Want:         keyErr.Want,
				}
			}
		}
		return err
	}, nil
}
