package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 20 * time.Second

	gracefulEnvKey   = "PULSO_GRACEFUL"
	gracefulEnvValue = gracefulEnvKey + "=1"
	// the inherited listener follows stdin, stdout and stderr
	inheritedListenerFD = 3
)

// Server is an http.Server that drains on SIGTERM/SIGINT and hands its
// listening socket to a re-executed binary on SIGUSR2.
type Server struct {
	*http.Server

	listener        net.Listener
	inherited       bool
	shutdownTimeout time.Duration
	signals         chan os.Signal
	done            chan struct{}
}

func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       defaultReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      defaultWriteTimeout,
		},
		inherited:       os.Getenv(gracefulEnvKey) != "",
		shutdownTimeout: defaultShutdownTimeout,
		signals:         make(chan os.Signal, 1),
		done:            make(chan struct{}),
	}
}

// ListenAndServe blocks until the server has been shut down by a signal.
func (s *Server) ListenAndServe() error {
	ln, err := s.listen()
	if err != nil {
		return err
	}
	s.listener = ln
	Logger.Info("http server listening", zap.String("addr", ln.Addr().String()), zap.Bool("inherited", s.inherited))

	go s.handleSignals()
	err = s.Serve(ln)
	<-s.done
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) listen() (net.Listener, error) {
	if s.inherited {
		ln, err := net.FileListener(os.NewFile(inheritedListenerFD, "listener"))
		if err != nil {
			return nil, fmt.Errorf("inherit listener: %w", err)
		}
		return ln, nil
	}
	addr := s.Addr
	if addr == "" {
		addr = ":http"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return ln, nil
}

func (s *Server) handleSignals() {
	signal.Notify(s.signals, syscall.SIGTERM, syscall.SIGINT, syscall.SIGUSR2)
	for sig := range s.signals {
		switch sig {
		case syscall.SIGTERM, syscall.SIGINT:
			Logger.Info("shutting down http server", zap.String("signal", sig.String()))
			s.shutdown()
			return
		case syscall.SIGUSR2:
			pid, err := s.fork()
			if err != nil {
				Logger.Error("restart failed, still serving", zap.Error(err))
				continue
			}
			Logger.Info("restarted, draining old process", zap.Int("new_pid", pid))
			s.shutdown()
			return
		}
	}
}

func (s *Server) shutdown() {
	signal.Stop(s.signals)
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		Logger.Error("http server shutdown", zap.Error(err))
	}
	_ = Logger.Sync()
	close(s.done)
}

// fork re-executes the current binary with the listening socket as fd 3.
func (s *Server) fork() (int, error) {
	tcp, ok := s.listener.(*net.TCPListener)
	if !ok {
		return 0, errors.New("listener is not a TCP listener")
	}
	f, err := tcp.File()
	if err != nil {
		return 0, fmt.Errorf("listener file: %w", err)
	}
	defer f.Close()

	env := make([]string, 0, len(os.Environ())+1)
	for _, e := range os.Environ() {
		if e != gracefulEnvValue {
			env = append(env, e)
		}
	}
	env = append(env, gracefulEnvValue)

	pid, err := syscall.ForkExec(os.Args[0], os.Args, &syscall.ProcAttr{
		Env:   env,
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd(), f.Fd()},
	})
	if err != nil {
		return 0, fmt.Errorf("fork exec: %w", err)
	}
	return pid, nil
}

// GraceServer serves handler on addr until SIGTERM or SIGINT.
func GraceServer(addr string, handler http.Handler) error {
	return NewServer(addr, handler).ListenAndServe()
}
