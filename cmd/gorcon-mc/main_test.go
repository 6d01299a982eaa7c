package main

import (
	"bytes"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/kolide/kit/version"
	"github.com/playnet-public/gorcon-mc/pkg/rcon/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//startServer answers "list" like a vanilla server and records every command
func startServer(t *testing.T) (port int, commands func() []string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	var mu sync.Mutex
	var cmds []string
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				for {
					p, err := protocol.ReadPacket(conn)
					if err != nil {
						return
					}
					body := ""
					if p.Type == protocol.PacketType.Command {
						mu.Lock()
						cmds = append(cmds, string(p.Body))
						mu.Unlock()
						if string(p.Body) == "list" {
							body = "There are 0 players online"
						}
					}
					raw, _ := protocol.BuildPacket(p.ID, protocol.PacketType.ResponseValue, []byte(body))
					conn.Write(raw)
				}
			}(conn)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string{}, cmds...)
	}
}

func runCommand(t *testing.T, port int, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", strconv.Itoa(port))
	t.Setenv("PASSWORD", "secret")
	t.Setenv("QUIET_PERIOD", "50ms")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"--config-path", t.TempDir(), "--devbuild"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestExecCommand(t *testing.T) {
	port, commands := startServer(t)
	out, err := runCommand(t, port, "exec", "list")
	require.NoError(t, err)
	assert.Equal(t, "There are 0 players online", strings.TrimSpace(out))
	assert.Equal(t, []string{"list"}, commands())
}

func TestBanCommand(t *testing.T) {
	port, commands := startServer(t)
	_, err := runCommand(t, port, "ban", "add", "steve", "griefing", "spawn")
	require.NoError(t, err)
	assert.Equal(t, []string{"whitelist remove steve", "ban steve griefing spawn"}, commands())
}

func TestWhitelistCommand_InvalidUsername(t *testing.T) {
	port, commands := startServer(t)
	_, err := runCommand(t, port, "whitelist", "add", "this_name_is_far_too_long")
	assert.Error(t, err)
	assert.Empty(t, commands())
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	t.Setenv("HOST", "")
	t.Setenv("PASSWORD", "")
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config-path", t.TempDir(), "exec", "list"})
	assert.Error(t, cmd.Execute())
}

func TestRootCommand_Version(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, version.Version().Version, cmd.Version)
	assert.Contains(t, out.String(), version.Version().Version)
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"version"})
	assert.NoError(t, cmd.Execute())

	cmd = newRootCommand()
	cmd.SetArgs([]string{"version", "extra"})
	assert.Error(t, cmd.Execute())
}
