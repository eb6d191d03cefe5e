package tui

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/muesli/termenv"

	"github.com/vovakirdan/tui-quest/internal/config"
	"github.com/vovakirdan/tui-quest/internal/player"
	"github.com/vovakirdan/tui-quest/internal/storage"
)

const defaultIdleTimeout = 30 * time.Minute

// SSHServer serves the player over SSH, one app instance per
// connection. All connections share the installed game library and the
// play history database.
type SSHServer struct {
	cfg    *config.Config
	server *ssh.Server
	store  *storage.Store
	logger *log.Logger

	mu     sync.Mutex
	active map[string]*player.Session
}

// NewSSHServer creates the server from the player configuration. A
// missing library database degrades to a library with only the demo.
func NewSSHServer(cfg *config.Config) (*SSHServer, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "quest-ssh",
	})

	s := &SSHServer{
		cfg:    cfg,
		logger: logger,
		active: make(map[string]*player.Session),
	}

	store, err := storage.Open(cfg.Library.Database)
	if err != nil {
		logger.Warn("cannot open game library database", "error", err)
	} else {
		s.store = store
	}

	keyDir := config.ExpandPath(cfg.Server.HostKeyDir)
	if err := os.MkdirAll(keyDir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", err)
	}

	srv, err := wish.NewServer(
		wish.WithAddress(net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))),
		wish.WithHostKeyPath(filepath.Join(keyDir, "quest_ed25519")),
		wish.WithIdleTimeout(defaultIdleTimeout),
		wish.WithMiddleware(
			bubbletea.MiddlewareWithProgramHandler(s.programHandler, termenv.ANSI256),
			s.cleanupMiddleware,
			s.loggingMiddleware,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}
	s.server = srv
	return s, nil
}

// programHandler builds the per-connection program and binds its
// presenter, so game callbacks can reach the remote terminal.
func (s *SSHServer) programHandler(sess ssh.Session) *tea.Program {
	_, _, active := sess.Pty()
	if !active {
		wish.Fatalln(sess, "no active terminal, sorry")
		return nil
	}

	presenter := newTeaPresenter()
	model := NewAppModel(AppOptions{
		Config:    s.cfg,
		Store:     s.store,
		Logger:    s.logger,
		Presenter: presenter,
		OnSession: s.trackSession(sess.Context().SessionID()),
	})

	opts := append(bubbletea.MakeOptions(sess), tea.WithAltScreen())
	p := tea.NewProgram(model, opts...)
	presenter.Bind(p.Send)
	return p
}

// trackSession records which game session a connection is running.
func (s *SSHServer) trackSession(connID string) func(*player.Session) {
	return func(ps *player.Session) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if ps == nil {
			delete(s.active, connID)
			return
		}
		s.active[connID] = ps
	}
}

// cleanupMiddleware stops a game a closed connection left running.
func (s *SSHServer) cleanupMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		next(sess)
		s.mu.Lock()
		ps := s.active[sess.Context().SessionID()]
		delete(s.active, sess.Context().SessionID())
		s.mu.Unlock()
		if ps != nil {
			s.logger.Info("stopping game left by closed session", "user", sess.User())
			ps.DetachPresenter()
			ps.Stop()
		}
	}
}

// loggingMiddleware logs session starts and ends.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		s.logger.Info("new session",
			"user", sess.User(),
			"remote", sess.RemoteAddr().String(),
		)
		start := time.Now()
		next(sess)
		s.logger.Info("session ended",
			"user", sess.User(),
			"duration", time.Since(start).Round(time.Second),
		)
	}
}

// Start begins listening and blocks until a shutdown signal arrives or
// the server fails.
func (s *SSHServer) Start() error {
	s.logger.Info("starting SSH server", "address", s.server.Addr)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("SSH server error: %w", err)
	case <-done:
		s.logger.Info("shutting down SSH server")
	}
	return s.Shutdown()
}

// Shutdown gracefully stops the server, any running games and the
// library store.
func (s *SSHServer) Shutdown() error {
	s.mu.Lock()
	sessions := make([]*player.Session, 0, len(s.active))
	for _, ps := range s.active {
		sessions = append(sessions, ps)
	}
	s.active = make(map[string]*player.Session)
	s.mu.Unlock()
	for _, ps := range sessions {
		ps.DetachPresenter()
		ps.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)

	if s.store != nil {
		if cerr := s.store.Close(); cerr != nil {
			s.logger.Warn("cannot close game library database", "error", cerr)
		}
	}

	if err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return fmt.Errorf("SSH server shutdown error: %w", err)
	}
	return nil
}
