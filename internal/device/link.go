package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/oshokin/qidev/internal/bus"
	"github.com/oshokin/qidev/internal/logger"
)

// Identity describes how to reach a robot.
type Identity struct {
	// Hostname is the robot hostname or IP address.
	Hostname string
	// Username is the shell account.
	Username string
	// Password authenticates Username.
	Password string
	// Port is the service bus port.
	Port int
	// SSHPort is the port of the SSH daemon.
	SSHPort int
}

// Options selects which channels Open establishes.
type Options struct {
	// Session opens the service bus session.
	Session bool
	// Shell opens the SSH channel and its SFTP client.
	Shell bool
	// Timeout bounds each connection handshake.
	Timeout time.Duration
	// Staging overrides the remote package staging directory.
	Staging string
}

// Link is an open connection to one robot. It is not safe for concurrent use.
type Link struct {
	identity Identity
	session  *bus.Session
	shell    *ssh.Client
	files    *sftp.Client
	mode     Mode
	staging  string
	log      *zap.SugaredLogger
}

const defaultTimeout = 5 * time.Second

var (
	// ErrConnection reports a fatal connection failure. It matches bus.ErrConnection.
	ErrConnection = bus.ErrConnection
	// ErrNoShell is returned for shell operations on links without an SSH channel.
	ErrNoShell = errors.New("no shell channel to the robot")
	// ErrNoSession is returned when the service bus session was not opened.
	ErrNoSession = errors.New("no service bus session to the robot")
	// errHostnameRequired is returned when the identity has no hostname.
	errHostnameRequired = errors.New("hostname must be provided")
)

// Open connects to the robot described by identity.
// Session failures and unresolvable hostnames are fatal and leave nothing open.
// A refused or unreachable SSH socket switches the link to virtual mode.
func Open(ctx context.Context, identity Identity, opts Options, log *zap.SugaredLogger) (*Link, error) {
	if identity.Hostname == "" {
		return nil, errHostnameRequired
	}

	if log == nil {
		log = logger.NewNop()
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	if opts.Staging == "" {
		opts.Staging = RemoteStagingPath(identity.Username)
	}

	link := &Link{
		identity: identity,
		log:      log,
		mode:     Physical{Staging: opts.Staging},
		staging:  opts.Staging,
	}

	log.Infow("Connecting", "host", identity.Hostname)

	if opts.Session {
		log.Debug("Creating service bus session")

		address := net.JoinHostPort(identity.Hostname, strconv.Itoa(identity.Port))

		session, err := bus.Dial(ctx, address, bus.WithConnectTimeout(opts.Timeout), bus.WithLogger(log))
		if err != nil {
			return nil, err
		}

		link.session = session

		log.Debugw("Service bus session ready", "address", session.Address())
	}

	if opts.Shell {
		log.Debug("Establishing connection via SSH")

		if err := link.openShell(ctx, opts.Timeout); err != nil {
			_ = link.Close()

			return nil, err
		}
	}

	return link, nil
}

// openShell dials SSH and either keeps the channel or falls back to virtual mode.
func (l *Link) openShell(ctx context.Context, timeout time.Duration) error {
	address := net.JoinHostPort(l.identity.Hostname, strconv.Itoa(l.identity.SSHPort))

	dialer := &net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		if isResolutionFailure(err) {
			return fmt.Errorf("%w %s: %w", ErrConnection, l.identity.Hostname, err)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		return l.becomeVirtual(err)
	}

	client, err := l.handshake(conn, address, timeout)
	if err != nil {
		_ = conn.Close()

		return fmt.Errorf("%w %s: ssh: %w", ErrConnection, l.identity.Hostname, err)
	}

	files, err := sftp.NewClient(client)
	if err != nil {
		_ = client.Close()

		return fmt.Errorf("%w %s: sftp: %w", ErrConnection, l.identity.Hostname, err)
	}

	l.shell = client
	l.files = files
	l.mode = Physical{
		Shell:   client,
		Files:   files,
		Staging: l.staging,
	}

	return nil
}

// handshake runs the SSH handshake on conn, trusting any host key and
// authenticating with the password only.
func (l *Link) handshake(conn net.Conn, address string, timeout time.Duration) (*ssh.Client, error) {
	//nolint:exhaustruct // Defaults for algorithms and banners.
	config := &ssh.ClientConfig{
		User: l.identity.Username,
		Auth: []ssh.AuthMethod{ssh.Password(l.identity.Password)},
		// Robots regenerate host keys on reflash; any key is accepted.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // Trust on first use.
		Timeout:         timeout,
	}

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	sshConn, channels, requests, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		return nil, err
	}

	if err = conn.SetDeadline(time.Time{}); err != nil {
		_ = sshConn.Close()

		return nil, err
	}

	return ssh.NewClient(sshConn, channels, requests), nil
}

func (l *Link) becomeVirtual(cause error) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("locate home directory: %w", err)
	}

	l.mode = Virtual{
		LocalRoot: home,
		Staging:   LocalStagingPath(home),
	}

	fields := []any{"cause", cause.Error()}
	if name, ok := localRobotProcess(); ok {
		fields = append(fields, "local_process", name)
	}

	l.log.Infow("Virtual robot detected", fields...)

	return nil
}

// isResolutionFailure reports whether err comes from hostname resolution.
func isResolutionFailure(err error) bool {
	var dnsErr *net.DNSError

	return errors.As(err, &dnsErr)
}

// localRobotProcess looks for a simulated robot process on this machine.
func localRobotProcess() (string, bool) {
	processes, err := ps.Processes()
	if err != nil {
		return "", false
	}

	for _, process := range processes {
		if strings.HasPrefix(strings.ToLower(process.Executable()), "naoqi") {
			return process.Executable(), true
		}
	}

	return "", false
}

// Mode returns the robot mode decided at Open.
//
//nolint:ireturn // Mode is a closed sum type.
func (l *Link) Mode() Mode {
	return l.mode
}

// IsVirtual reports whether the robot is simulated locally.
func (l *Link) IsVirtual() bool {
	_, ok := l.mode.(Virtual)

	return ok
}

// StagingPath returns the package staging directory of the robot.
func (l *Link) StagingPath() string {
	return l.mode.StagingPath()
}

// Hostname returns the robot hostname.
func (l *Link) Hostname() string {
	return l.identity.Hostname
}

// Bus returns the service bus session.
func (l *Link) Bus() (*bus.Session, error) {
	if l.session == nil {
		return nil, ErrNoSession
	}

	return l.session, nil
}

// Run executes command in a remote shell and returns its combined output.
func (l *Link) Run(_ context.Context, command string) (string, error) {
	if l.shell == nil {
		return "", ErrNoShell
	}

	session, err := l.shell.NewSession()
	if err != nil {
		return "", fmt.Errorf("open ssh session: %w", err)
	}

	defer session.Close() //nolint:errcheck // Closed after the command exits.

	l.log.Debugw("Running remote command", "command", command)

	output, err := session.CombinedOutput(command)
	if err != nil {
		return string(output), fmt.Errorf("run %q: %w", command, err)
	}

	return string(output), nil
}

// Close releases every open channel.
func (l *Link) Close() error {
	if l == nil {
		return nil
	}

	var errs []error

	if l.files != nil {
		errs = append(errs, l.files.Close())
		l.files = nil
	}

	if l.shell != nil {
		errs = append(errs, l.shell.Close())
		l.shell = nil
	}

	if l.session != nil {
		errs = append(errs, l.session.Close())
		l.session = nil
	}

	return errors.Join(errs...)
}
