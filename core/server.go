package core

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gliderlabs/ssh"
	"github.com/josephlewis42/flowsh/core/config"
	"github.com/josephlewis42/flowsh/core/logger"
	"github.com/juju/ratelimit"
	"github.com/spf13/afero"
	gossh "golang.org/x/crypto/ssh"
)

// Server runs an interactive shell for every SSH connection.
type Server struct {
	configuration *config.Configuration
	logger        *logger.Logger
	toClose       listCloser
	sshServer     *ssh.Server

	fs       afero.Fs
	dir      string
	hostname string
}

// NewServer creates a server from the configuration. Events are appended to
// the configuration's event log when enabled.
func NewServer(configuration *config.Configuration) (*Server, error) {
	var toClose listCloser

	events := io.Discard
	if configuration.LogEvents {
		fd, err := configuration.OpenEventLog()
		if err != nil {
			return nil, err
		}
		toClose = append(toClose, fd)
		events = &lockedWriter{w: fd}
	}

	dir, err := os.UserHomeDir()
	if err != nil {
		dir = "/"
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	server := &Server{
		configuration: configuration,
		logger:        logger.NewJsonLinesLogRecorder(events),
		toClose:       toClose,
		fs:            afero.NewOsFs(),
		dir:           dir,
		hostname:      hostname,
	}

	server.sshServer = &ssh.Server{
		Addr: fmt.Sprintf(":%d", configuration.SSH.Port),
		Handler: func(s ssh.Session) {
			if err := server.HandleConnection(s); err != nil {
				log.Printf("Session error: %v", err)
			}
		},
		PasswordHandler: func(ctx ssh.Context, password string) bool {
			return checkPassword(configuration.SSH.Password, password)
		},
	}

	if configuration.SSH.HostKeyPath != "" {
		pemBytes, err := configuration.ReadHostKey()
		if err != nil {
			toClose.Close()
			return nil, err
		}
		signer, err := gossh.ParsePrivateKey(pemBytes)
		if err != nil {
			toClose.Close()
			return nil, fmt.Errorf("invalid host key: %w", err)
		}
		server.sshServer.AddHostKey(signer)
	}

	return server, nil
}

func checkPassword(want, got string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

// throttle limits output to bytesPerSecond, 0 means unlimited. Both writers
// share a single bucket.
func throttle(bytesPerSecond int64, stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if bytesPerSecond <= 0 {
		return stdout, stderr
	}

	bucket := ratelimit.NewBucketWithRate(float64(bytesPerSecond), bytesPerSecond)
	return ratelimit.Writer(stdout, bucket), ratelimit.Writer(stderr, bucket)
}

// HandleConnection runs a shell session over the SSH channel.
func (srv *Server) HandleConnection(s ssh.Session) error {
	sessionLogger := srv.logger.NewSession()

	ptyInfo, winch, isPTY := s.Pty()
	width := int64(ptyInfo.Window.Width)
	go func() {
		for window := range winch {
			atomic.StoreInt64(&width, int64(window.Width))
		}
	}()

	stdout, stderr := throttle(srv.configuration.SSH.OutputBytesPerSecond, s, s.Stderr())

	if banner := srv.configuration.SSH.Banner; banner != "" {
		fmt.Fprintln(stdout, banner)
	}

	environ := append(os.Environ(), s.Environ()...)
	environ = append(environ, "USER="+s.User())

	session, err := NewSession(srv.configuration, SessionOptions{
		User:       s.User(),
		Hostname:   srv.hostname,
		RemoteAddr: s.RemoteAddr().String(),
		Fs:         srv.fs,
		Dir:        srv.dir,
		Environ:    environ,
		Events:     sessionLogger,
		Terminal: Terminal{
			Stdin:      s,
			Stdout:     stdout,
			Stderr:     stderr,
			IsTerminal: isPTY,
			ClientRaw:  true,
			Width: func() int {
				if w := atomic.LoadInt64(&width); w > 0 {
					return int(w)
				}
				return defaultWidth
			},
		},
	})
	if err != nil {
		s.Exit(1)
		return err
	}

	return s.Exit(session.Run())
}

// ListenAndServe accepts connections until the server is shut down.
func (srv *Server) ListenAndServe() error {
	log.Printf("- Starting SSH server on %s\n", srv.sshServer.Addr)
	return srv.sshServer.ListenAndServe()
}

// Shutdown stops the server and closes the event log.
func (srv *Server) Shutdown(ctx context.Context) error {
	defer srv.toClose.Close()
	return srv.sshServer.Shutdown(ctx)
}

// lockedWriter serializes writes from concurrent sessions.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

type listCloser []io.Closer

func (lc listCloser) Close() error {
	var lastErr error
	for _, v := range lc {
		if err := v.Close(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}
