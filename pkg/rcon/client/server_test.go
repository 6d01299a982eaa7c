package client

import (
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/playnet-public/gorcon-mc/pkg/rcon/connection"
	"github.com/playnet-public/gorcon-mc/pkg/rcon/protocol"
)

//fakeServer answers every command with "echo:<cmd>" after delay and hangs up after the commands in dropAfter
type fakeServer struct {
	ln        net.Listener
	password  string
	delay     time.Duration
	dropAfter map[string]bool

	mu     sync.Mutex
	logins int
	cmds   []string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	s := &fakeServer{
		ln:        ln,
		password:  "secret",
		dropAfter: map[string]bool{},
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *fakeServer) serve(conn net.Conn) {
	defer conn.Close()
	for {
		p, err := protocol.ReadPacket(conn)
		if err != nil {
			return
		}
		if p.Type == protocol.PacketType.Auth {
			id := p.ID
			if string(p.Body) != s.password {
				id = protocol.FailedID
			} else {
				s.mu.Lock()
				s.logins++
				s.mu.Unlock()
			}
			writePacket(conn, id, protocol.PacketType.AuthResponse, "")
			continue
		}

		cmd := string(p.Body)
		s.mu.Lock()
		s.cmds = append(s.cmds, cmd)
		delay := s.delay
		drop := s.dropAfter[cmd]
		s.mu.Unlock()

		time.Sleep(delay)
		writePacket(conn, 0, protocol.PacketType.ResponseValue, "echo:"+cmd)
		if drop {
			return
		}
	}
}

func (s *fakeServer) config() connection.Config {
	host, port, _ := net.SplitHostPort(s.ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return connection.Config{
		Host:        host,
		Port:        p,
		Password:    s.password,
		Timeout:     2 * time.Second,
		QuietPeriod: 30 * time.Millisecond,
	}
}

func (s *fakeServer) setDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

func (s *fakeServer) hangUpAfter(cmd string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropAfter[cmd] = true
}

func (s *fakeServer) commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.cmds...)
}

func (s *fakeServer) loginCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

func writePacket(conn net.Conn, id, packetType int32, body string) {
	raw, err := protocol.BuildPacket(id, packetType, []byte(body))
	if err != nil {
		return
	}
	conn.Write(raw)
}
