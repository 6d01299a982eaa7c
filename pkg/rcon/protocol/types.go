package protocol

//WrapperSize is the number of bytes following the length prefix that are not body:
//request id (4), packet type (4) and the two null terminators
const WrapperSize = 4 + 4 + 2

//MaxPacketSize is the largest length prefix accepted for a single packet.
//Servers send at most 4096 body bytes per fragment, the rest is headroom for non-vanilla servers.
const MaxPacketSize = 1 << 16

//FailedID is echoed by the server in place of the request id when authentication failed
const FailedID int32 = -1

//PacketType contains all types a packet could have
var PacketType = struct {
	Auth          int32
	AuthResponse  int32
	Command       int32
	ResponseValue int32
}{
	Auth:          3,
	AuthResponse:  2,
	Command:       2,
	ResponseValue: 0,
}

//Packet is a single decoded rcon frame
type Packet struct {
	ID   int32
	Type int32
	Body []byte
}

//Failed reports whether the server signaled an authentication failure
func (p Packet) Failed() bool {
	return p.ID == FailedID
}
