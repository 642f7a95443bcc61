package modbus

import (
	"encoding/binary"
	"fmt"
)

// Function codes this server implements. Any other code yields
// ExceptionIllegalFunction.
const (
	funcReadHoldingRegisters  byte = 0x03
	funcReadInputRegisters    byte = 0x04
	funcWriteSingleRegister   byte = 0x06
	funcWriteMultipleRegisters byte = 0x10

	exceptionBit byte = 0x80
)

// Exception codes, per the Modbus application protocol spec.
const (
	ExceptionIllegalFunction     byte = 0x01
	ExceptionIllegalDataAddress  byte = 0x02
	ExceptionIllegalDataValue    byte = 0x03
)

// mbapHeaderLen is the size of the MBAP header: transaction id (2),
// protocol id (2), length (2), unit id (1).
const mbapHeaderLen = 7

// mbapHeader is the Modbus/TCP framing header prefixed to every PDU.
// Length counts the unit id byte plus everything after it.
type mbapHeader struct {
	transactionID uint16
	protocolID    uint16
	length        uint16
	unitID        byte
}

func decodeMBAPHeader(b []byte) (mbapHeader, error) {
	if len(b) < mbapHeaderLen {
		return mbapHeader{}, fmt.Errorf("modbus: short MBAP header (%d bytes)", len(b))
	}
	h := mbapHeader{
		transactionID: binary.BigEndian.Uint16(b[0:2]),
		protocolID:    binary.BigEndian.Uint16(b[2:4]),
		length:        binary.BigEndian.Uint16(b[4:6]),
		unitID:        b[6],
	}
	if h.protocolID != 0 {
		return mbapHeader{}, fmt.Errorf("modbus: unsupported protocol id %d", h.protocolID)
	}
	return h, nil
}

func encodeMBAPHeader(h mbapHeader) []byte {
	b := make([]byte, mbapHeaderLen)
	binary.BigEndian.PutUint16(b[0:2], h.transactionID)
	binary.BigEndian.PutUint16(b[2:4], h.protocolID)
	binary.BigEndian.PutUint16(b[4:6], h.length)
	b[6] = h.unitID
	return b
}

// buildResponse assembles a full MBAP frame wrapping the given PDU
// bytes (function code + data), addressed to the same transaction and
// unit as the request.
func buildResponse(req mbapHeader, pdu []byte) []byte {
	h := mbapHeader{
		transactionID: req.transactionID,
		protocolID:    0,
		length:        uint16(1 + len(pdu)),
		unitID:        req.unitID,
	}
	return append(encodeMBAPHeader(h), pdu...)
}

func buildException(req mbapHeader, function, code byte) []byte {
	return buildResponse(req, []byte{function | exceptionBit, code})
}

func encodeRegisters(values []uint16) []byte {
	b := make([]byte, len(values)*2)
	for i, v := range values {
		binary.BigEndian.PutUint16(b[i*2:i*2+2], v)
	}
	return b
}

func decodeRegisters(b []byte) []uint16 {
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(b[i*2 : i*2+2])
	}
	return out
}
