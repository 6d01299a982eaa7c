package connection

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/playnet-public/gorcon-mc/pkg/rcon/protocol"
)

//fakeServer is a minimal rcon server accepting one password
type fakeServer struct {
	t        *testing.T
	ln       net.Listener
	password string
	handle   func(conn net.Conn, cmd string)

	mu    sync.Mutex
	auths []string
	cmds  []string
}

func newFakeServer(t *testing.T, password string, handle func(conn net.Conn, cmd string)) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	return startFakeServer(t, ln, password, handle)
}

func newTLSFakeServer(t *testing.T, password string, handle func(conn net.Conn, cmd string)) *fakeServer {
	t.Helper()
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{generateTestCertificate(t)},
	})
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	return startFakeServer(t, ln, password, handle)
}

func startFakeServer(t *testing.T, ln net.Listener, password string, handle func(conn net.Conn, cmd string)) *fakeServer {
	s := &fakeServer{
		t:        t,
		ln:       ln,
		password: password,
		handle:   handle,
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
		switch p.Type {
		case protocol.PacketType.Auth:
			s.mu.Lock()
			s.auths = append(s.auths, string(p.Body))
			s.mu.Unlock()
			id := p.ID
			if string(p.Body) != s.password {
				id = protocol.FailedID
			}
			writePacket(conn, id, protocol.PacketType.AuthResponse, "")
		case protocol.PacketType.Command:
			s.mu.Lock()
			s.cmds = append(s.cmds, string(p.Body))
			s.mu.Unlock()
			if s.handle != nil {
				s.handle(conn, string(p.Body))
			}
		}
	}
}

func (s *fakeServer) config() Config {
	host, port, _ := net.SplitHostPort(s.ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return Config{
		Host:        host,
		Port:        p,
		Password:    s.password,
		Timeout:     2 * time.Second,
		QuietPeriod: 100 * time.Millisecond,
	}
}

func (s *fakeServer) commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.cmds...)
}

func (s *fakeServer) logins() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.auths...)
}

func writePacket(conn net.Conn, id, packetType int32, body string) {
	raw, err := protocol.BuildPacket(id, packetType, []byte(body))
	if err != nil {
		return
	}
	conn.Write(raw)
}

func reply(body string) func(conn net.Conn, cmd string) {
	return func(conn net.Conn, _ string) {
		writePacket(conn, 0, protocol.PacketType.ResponseValue, body)
	}
}

//generateTestCertificate creates a self-signed certificate for testing
func generateTestCertificate(t *testing.T) tls.Certificate {
	t.Helper()

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate private key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "rcon.test.local"},
		DNSNames:              []string{"rcon.test.local"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	return tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  privateKey,
	}
}
