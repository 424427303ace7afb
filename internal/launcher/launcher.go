// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package launcher implements the side-channel socket the streaming host's
// launcher connects to. Once a peer is attached, the receiver can ask it to
// start the streaming server.
package launcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	rxlog "github.com/ManuGH/streamrx/internal/log"
	"github.com/ManuGH/streamrx/internal/resilience"
	"github.com/rs/zerolog"
)

// CommandStartServer asks the host to launch the streaming server.
const CommandStartServer = "StartServer"

var (
	ErrNotListening = errors.New("launcher: not listening")
	ErrNoPeer       = errors.New("launcher: no peer connected")
)

// Config holds listener parameters.
type Config struct {
	ListenAddr       string
	CommandTimeout   time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
}

// Socket accepts one launcher peer at a time and writes newline-terminated
// commands to it. A second peer is refused while the first is attached.
type Socket struct {
	cfg       Config
	logger    zerolog.Logger
	breaker   *resilience.Breaker
	onConnect func()

	mu   sync.Mutex
	ln   net.Listener
	peer net.Conn
	wg   sync.WaitGroup
}

// New creates a socket. onConnect runs on the accept goroutine; callers that
// touch orchestrator state must post a task from it.
func New(cfg Config, onConnect func()) *Socket {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 2 * time.Second
	}
	breaker := resilience.NewBreaker("launcher", resilience.Policy{
		Threshold: cfg.BreakerThreshold,
		Cooldown:  cfg.BreakerReset,
	})
	return &Socket{
		cfg:       cfg,
		logger:    rxlog.WithComponent("launcher"),
		breaker:   breaker,
		onConnect: onConnect,
	}
}

// Listen binds the configured address and starts accepting peers.
func (s *Socket) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("launcher listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.ln = ln
	s.logger.Info().
		Str(rxlog.FieldEvent, "launcher.listen").
		Str("addr", ln.Addr().String()).
		Msg("launcher socket listening")

	s.wg.Add(1)
	go s.acceptLoop(ln)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Socket) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Socket) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Warn().Err(err).Msg("launcher accept failed")
			}
			return
		}

		s.mu.Lock()
		if s.peer != nil || s.ln != ln {
			s.mu.Unlock()
			s.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("refusing second launcher peer")
			_ = conn.Close()
			continue
		}
		s.peer = conn
		s.mu.Unlock()

		s.breaker.Reset()
		s.logger.Info().
			Str(rxlog.FieldEvent, "launcher.peer_connected").
			Str("remote", conn.RemoteAddr().String()).
			Msg("launcher peer connected")

		s.wg.Add(1)
		go s.watchPeer(conn)

		if s.onConnect != nil {
			s.onConnect()
		}
	}
}

// watchPeer drains whatever the peer sends and detaches it on EOF.
func (s *Socket) watchPeer(conn net.Conn) {
	defer s.wg.Done()
	r := bufio.NewScanner(conn)
	for r.Scan() {
		s.logger.Debug().Str("line", r.Text()).Msg("launcher peer message")
	}
	s.detach(conn)
}

func (s *Socket) detach(conn net.Conn) {
	s.mu.Lock()
	if s.peer == conn {
		s.peer = nil
	}
	s.mu.Unlock()
	_ = conn.Close()
}

// IsConnected reports whether a peer is attached.
func (s *Socket) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer != nil
}

// SendCommand writes name followed by a newline to the peer. Write failures
// detach the peer and count against the circuit breaker.
func (s *Socket) SendCommand(ctx context.Context, name string) error {
	s.mu.Lock()
	listening := s.ln != nil
	conn := s.peer
	s.mu.Unlock()

	if !listening {
		return ErrNotListening
	}
	if conn == nil {
		return ErrNoPeer
	}

	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		deadline := time.Now().Add(s.cfg.CommandTimeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
		_, err := conn.Write([]byte(name + "\n"))
		return err
	})
	switch {
	case err == nil:
		s.logger.Info().Str(rxlog.FieldEvent, "launcher.command_sent").Str("command", name).Msg("launcher command sent")
	case errors.Is(err, resilience.ErrOpen):
		// Quiet: the placeholder tick retries on every button press.
	default:
		s.logger.Warn().Err(err).Str("command", name).Msg("launcher command failed")
		s.detach(conn)
	}
	return err
}

// Close stops accepting, drops the peer and waits for the socket goroutines.
func (s *Socket) Close() error {
	s.mu.Lock()
	ln := s.ln
	peer := s.peer
	s.ln = nil
	s.peer = nil
	s.mu.Unlock()

	var errs []error
	if ln != nil {
		errs = append(errs, ln.Close())
	}
	if peer != nil {
		errs = append(errs, peer.Close())
	}
	s.wg.Wait()
	if ln != nil {
		s.logger.Info().Str(rxlog.FieldEvent, "launcher.closed").Msg("launcher socket closed")
	}
	return errors.Join(errs...)
}
