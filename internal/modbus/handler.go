package modbus

import (
	"encoding/binary"
)

// handleRequest dispatches a decoded PDU (function code byte followed
// by its data) against the register map and returns the response PDU
// bytes (success or exception — the caller just wraps whichever comes
// back in an MBAP frame).
func handleRequest(regs *RegisterMap, pdu []byte) []byte {
	if len(pdu) == 0 {
		return []byte{funcReadHoldingRegisters | exceptionBit, ExceptionIllegalFunction}
	}
	function := pdu[0]
	data := pdu[1:]

	switch function {
	case funcReadInputRegisters:
		return handleReadInput(regs, function, data)
	case funcReadHoldingRegisters:
		return handleReadHolding(regs, function, data)
	case funcWriteSingleRegister:
		return handleWriteSingle(regs, function, data)
	case funcWriteMultipleRegisters:
		return handleWriteMultiple(regs, function, data)
	default:
		return []byte{function | exceptionBit, ExceptionIllegalFunction}
	}
}

func handleReadInput(regs *RegisterMap, function byte, data []byte) []byte {
	addr, cnt, ok := decodeReadRequest(data)
	if !ok {
		return []byte{function | exceptionBit, ExceptionIllegalDataValue}
	}
	regs.RefreshInput()
	values, ok := regs.ReadInput(addr, cnt)
	if !ok {
		return []byte{function | exceptionBit, ExceptionIllegalDataAddress}
	}
	return encodeReadResponse(function, values)
}

func handleReadHolding(regs *RegisterMap, function byte, data []byte) []byte {
	addr, cnt, ok := decodeReadRequest(data)
	if !ok {
		return []byte{function | exceptionBit, ExceptionIllegalDataValue}
	}
	values, ok := regs.ReadHolding(addr, cnt)
	if !ok {
		return []byte{function | exceptionBit, ExceptionIllegalDataAddress}
	}
	return encodeReadResponse(function, values)
}

func decodeReadRequest(data []byte) (addr, cnt uint16, ok bool) {
	if len(data) != 4 {
		return 0, 0, false
	}
	return binary.BigEndian.Uint16(data[0:2]), binary.BigEndian.Uint16(data[2:4]), true
}

func encodeReadResponse(function byte, values []uint16) []byte {
	encoded := encodeRegisters(values)
	out := make([]byte, 0, 2+len(encoded))
	out = append(out, function, byte(len(encoded)))
	return append(out, encoded...)
}

func handleWriteSingle(regs *RegisterMap, function byte, data []byte) []byte {
	if len(data) != 4 {
		return []byte{function | exceptionBit, ExceptionIllegalDataValue}
	}
	addr := binary.BigEndian.Uint16(data[0:2])
	value := binary.BigEndian.Uint16(data[2:4])

	outOfRange, invalidValue := regs.WriteHolding(addr, []uint16{value})
	if outOfRange {
		return []byte{function | exceptionBit, ExceptionIllegalDataAddress}
	}
	if invalidValue {
		return []byte{function | exceptionBit, ExceptionIllegalDataValue}
	}
	return append([]byte{function}, data...)
}

func handleWriteMultiple(regs *RegisterMap, function byte, data []byte) []byte {
	if len(data) < 5 {
		return []byte{function | exceptionBit, ExceptionIllegalDataValue}
	}
	addr := binary.BigEndian.Uint16(data[0:2])
	cnt := binary.BigEndian.Uint16(data[2:4])
	byteCount := data[4]
	payload := data[5:]
	if byteCount != byte(cnt*2) || len(payload) != int(byteCount) {
		return []byte{function | exceptionBit, ExceptionIllegalDataValue}
	}

	values := decodeRegisters(payload)
	outOfRange, invalidValue := regs.WriteHolding(addr, values)
	if outOfRange {
		return []byte{function | exceptionBit, ExceptionIllegalDataAddress}
	}
	if invalidValue {
		return []byte{function | exceptionBit, ExceptionIllegalDataValue}
	}

	resp := make([]byte, 5)
	resp[0] = function
	binary.BigEndian.PutUint16(resp[1:3], addr)
	binary.BigEndian.PutUint16(resp[3:5], cnt)
	return resp
}
