package skifflib

import (
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Server accepts inbound sockets and hands each one to the Acceptor as an
// unregistered engine. It never registers on the acceptor's behalf: an
// ignored connection simply runs into its registration deadline.
type Server struct {
	Acceptor Acceptor

	ReadBufferSize  int
	WriteTimeout    time.Duration
	RegisterTimeout time.Duration
	Logger          *zerolog.Logger

	initOnce sync.Once
	stopOnce sync.Once
	done     chan struct{}

	mu    sync.Mutex
	conns map[*Conn]struct{}

	wg sync.WaitGroup
}

func (s *Server) init() {
	s.initOnce.Do(func() {
		s.done = make(chan struct{})
		s.conns = make(map[*Conn]struct{})
	})
}

func (s *Server) Serve(ln net.Listener) error {
	s.init()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
				return err
			}
		}

		select {
		case <-s.done:
			_ = conn.Close()
			return nil
		default:
		}

		c := NewConn(conn, Options{
			ReadBufferSize:  s.ReadBufferSize,
			WriteTimeout:    s.WriteTimeout,
			RegisterTimeout: s.RegisterTimeout,
			Logger:          s.Logger,
		})

		s.mu.Lock()
		s.conns[c] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()

			if s.Acceptor != nil {
				s.Acceptor.ServeConn(c)
			} else {
				c.shutdown()
			}

			<-c.done
			c.wait()

			s.mu.Lock()
			delete(s.conns, c)
			s.mu.Unlock()
		}()
	}
}

// Shutdown aborts every live connection and waits for their engines to wind
// down. The listener passed to Serve belongs to the caller and is closed by
// the caller; Serve returns nil for accept errors after Shutdown.
func (s *Server) Shutdown() {
	s.init()
	s.stopOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.shutdown()
	}
	s.wg.Wait()
}
