package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	raven "github.com/getsentry/raven-go"
	"github.com/playnet-public/gorcon-mc/pkg/common"
)

//BuildPacket creates a length prefixed frame with id, type and body
func BuildPacket(id, packetType int32, body []byte) ([]byte, error) {
	size := len(body) + WrapperSize
	if size > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d bytes", common.ErrInvalidPacketSize, size)
	}
	packet := make([]byte, 4+size)
	binary.LittleEndian.PutUint32(packet[0:4], uint32(size))
	binary.LittleEndian.PutUint32(packet[4:8], uint32(id))
	binary.LittleEndian.PutUint32(packet[8:12], uint32(packetType))
	copy(packet[12:], body)
	// the trailing two bytes are already zero
	return packet, nil
}

//BuildLoginPacket creates an auth packet carrying the password
func BuildLoginPacket(pw string) ([]byte, error) {
	return BuildPacket(0, PacketType.Auth, []byte(pw))
}

//BuildCmdPacket creates a command packet. Requests are strictly serialized so the id is always 0.
func BuildCmdPacket(cmd string) ([]byte, error) {
	return BuildPacket(0, PacketType.Command, []byte(cmd))
}

//ReadFrame reads one length prefix and exactly that many bytes from r
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	size := int32(binary.LittleEndian.Uint32(prefix[:]))
	if size < WrapperSize || size > MaxPacketSize {
		err := fmt.Errorf("%w: %d bytes", common.ErrInvalidPacketSize, size)
		raven.CaptureError(err, map[string]string{"app": "rcon", "module": "protocol"})
		return nil, err
	}
	frame := make([]byte, size)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

//ParsePacket decodes a frame without its length prefix
func ParsePacket(frame []byte) (p Packet, err error) {
	defer func() {
		if err != nil {
			raven.CaptureError(fmt.Errorf("%v - Frame: %x", err, frame), map[string]string{"app": "rcon", "module": "protocol"})
		}
	}()
	if len(frame) < WrapperSize {
		err = fmt.Errorf("%w: %d bytes", common.ErrInvalidPacketSize, len(frame))
		return
	}
	end := len(frame) - 2
	if frame[end] != 0 || frame[end+1] != 0 {
		err = common.ErrInvalidTermination
		return
	}
	p.ID = int32(binary.LittleEndian.Uint32(frame[0:4]))
	p.Type = int32(binary.LittleEndian.Uint32(frame[4:8]))
	p.Body = append([]byte{}, frame[8:end]...)
	return
}

//ReadPacket reads and decodes the next packet from r
func ReadPacket(r io.Reader) (Packet, error) {
	frame, err := ReadFrame(r)
	if err != nil {
		return Packet{}, err
	}
	return ParsePacket(frame)
}
