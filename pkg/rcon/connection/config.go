package connection

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	//DefaultPort is the vanilla rcon port
	DefaultPort = 25575
	//DefaultTimeout bounds every read of a packet
	DefaultTimeout = 5 * time.Second
	//DefaultQuietPeriod is how long to wait for a follow-up fragment before a response is considered complete
	DefaultQuietPeriod = time.Second
)

//TLSMode selects how the socket is wrapped
type TLSMode int

const (
	//TLSDisabled uses a plain tcp socket
	TLSDisabled TLSMode = iota
	//TLSEnabled wraps the socket and verifies chain and hostname
	TLSEnabled
	//TLSInsecure wraps the socket without any certificate verification.
	//This is an explicit opt-in for self-signed proxies and is never selected by default.
	TLSInsecure
)

func (m TLSMode) String() string {
	switch m {
	case TLSDisabled:
		return "disabled"
	case TLSEnabled:
		return "enabled"
	case TLSInsecure:
		return "insecure"
	}
	return "unknown(" + strconv.Itoa(int(m)) + ")"
}

//ParseTLSMode converts the textual representation used in config files
func ParseTLSMode(s string) (TLSMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "disabled", "false", "off":
		return TLSDisabled, nil
	case "enabled", "true", "on":
		return TLSEnabled, nil
	case "insecure":
		return TLSInsecure, nil
	}
	return TLSDisabled, fmt.Errorf("unknown tls mode %q", s)
}

//Config holds everything required to open a connection. It is passed by value and never mutated.
type Config struct {
	Host        string
	Port        int
	Password    string
	TLS         TLSMode
	Timeout     time.Duration
	QuietPeriod time.Duration
}

//Addr returns host:port
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

//String omits the password
func (c Config) String() string {
	return fmt.Sprintf("%s (tls: %s)", c.Addr(), c.TLS)
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.QuietPeriod <= 0 {
		c.QuietPeriod = DefaultQuietPeriod
	}
	return c
}
