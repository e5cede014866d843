// Package sshtest runs an in-process SSH server with an SFTP subsystem and
// canned exec replies, standing in for a physical robot in tests.
package sshtest

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Server is a password-protected SSH server bound to a loopback port.
type Server struct {
	// Addr is the host:port the server listens on.
	Addr string

	listener net.Listener
	config   *ssh.ServerConfig

	mu       sync.Mutex
	commands []string
	replies  map[string]string
	wg       sync.WaitGroup
}

var errDenied = errors.New("permission denied")

// Start launches a server accepting user/password and stops it at test cleanup.
func Start(t *testing.T, user, password string) *Server {
	t.Helper()

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}

	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		t.Fatalf("host key signer: %v", err)
	}

	//nolint:exhaustruct // Only password authentication is served.
	config := &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if meta.User() == user && string(pass) == password {
				return nil, nil //nolint:nilnil // nil permissions grant access.
			}

			return nil, errDenied
		},
	}
	config.AddHostKey(signer)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srv := &Server{
		Addr:     listener.Addr().String(),
		listener: listener,
		config:   config,
		replies:  make(map[string]string),
	}

	srv.wg.Add(1)

	go srv.acceptLoop()

	t.Cleanup(func() {
		_ = listener.Close()
		srv.wg.Wait()
	})

	return srv
}

// Port returns the listening port.
func (s *Server) Port() int {
	//nolint:forcetypeassert // TCP listener.
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Reply makes exec requests for command print output.
func (s *Server) Reply(command, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.replies[command] = output
}

// Commands returns the exec requests received so far.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.commands...)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	_, channels, requests, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		_ = conn.Close()

		return
	}

	go ssh.DiscardRequests(requests)

	for newChannel := range channels {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")

			continue
		}

		channel, channelRequests, err := newChannel.Accept()
		if err != nil {
			continue
		}

		go s.serveSession(channel, channelRequests)
	}
}

func (s *Server) serveSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	for req := range requests {
		switch req.Type {
		case "subsystem":
			if payloadString(req.Payload) != "sftp" {
				_ = req.Reply(false, nil)

				continue
			}

			_ = req.Reply(true, nil)

			go serveSFTP(channel)
		case "exec":
			_ = req.Reply(true, nil)

			s.exec(channel, payloadString(req.Payload))
		default:
			_ = req.Reply(false, nil)
		}
	}
}

func serveSFTP(channel ssh.Channel) {
	server, err := sftp.NewServer(channel)
	if err != nil {
		_ = channel.Close()

		return
	}

	_ = server.Serve()
	_ = server.Close()
}

func (s *Server) exec(channel ssh.Channel, command string) {
	s.mu.Lock()
	s.commands = append(s.commands, command)
	output, ok := s.replies[command]
	s.mu.Unlock()

	status := uint32(0)
	if !ok {
		output = fmt.Sprintf("sh: %s: not found\n", command)
		status = 127
	}

	_, _ = channel.Write([]byte(output))
	_, _ = channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
	_ = channel.Close()
}

// payloadString decodes an SSH string (uint32 length prefix).
func payloadString(payload []byte) string {
	const lengthPrefix = 4

	if len(payload) < lengthPrefix {
		return ""
	}

	size := binary.BigEndian.Uint32(payload)
	if int(size) > len(payload)-lengthPrefix {
		return ""
	}

	return string(payload[lengthPrefix : lengthPrefix+int(size)])
}
