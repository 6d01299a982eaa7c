package common

import "errors"

var (
	//ErrNotConnected is returned when a command is attempted without an open socket
	ErrNotConnected = errors.New("not connected")
	//ErrConnClosed is returned when connecting a connection that was already closed
	ErrConnClosed = errors.New("connection closed")
	//ErrClientClosed is returned when submitting to a closed client
	ErrClientClosed = errors.New("client closed")
	//ErrTimeout .
	ErrTimeout = errors.New("connection timeout")
	//ErrAuthentication is returned when the server echoes request id -1
	ErrAuthentication = errors.New("login failed")
	//ErrInvalidPacketSize .
	ErrInvalidPacketSize = errors.New("invalid packet size")
	//ErrInvalidTermination .
	ErrInvalidTermination = errors.New("packet incorrectly terminated")
	//ErrInvalidUsername .
	ErrInvalidUsername = errors.New("invalid username")
	//ErrInvalidConfig .
	ErrInvalidConfig = errors.New("invalid config")
)
