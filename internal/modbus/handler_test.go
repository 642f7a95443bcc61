package modbus

import (
	"encoding/binary"
	"testing"
)

func buildReadRequest(function byte, addr, cnt uint16) []byte {
	data := make([]byte, 5)
	data[0] = function
	binary.BigEndian.PutUint16(data[1:3], addr)
	binary.BigEndian.PutUint16(data[3:5], cnt)
	return data
}

func TestHandleReadHoldingRegisters(t *testing.T) {
	regs := NewRegisterMap(nil, fixedNow(0))
	resp := handleRequest(regs, buildReadRequest(funcReadHoldingRegisters, 0, 4))

	if resp[0] != funcReadHoldingRegisters {
		t.Fatalf("function echo = 0x%02X, want 0x%02X", resp[0], funcReadHoldingRegisters)
	}
	byteCount := resp[1]
	if byteCount != 8 {
		t.Fatalf("byte count = %d, want 8", byteCount)
	}
	values := decodeRegisters(resp[2:])
	want := []uint16{10, 20, 30, 40}
	for i, w := range want {
		if values[i] != w {
			t.Errorf("holding[%d] = %d, want %d", i, values[i], w)
		}
	}
}

func TestHandleReadInputRegistersOutOfRangeReturnsException(t *testing.T) {
	regs := NewRegisterMap(nil, fixedNow(0))
	resp := handleRequest(regs, buildReadRequest(funcReadInputRegisters, 0, 100))

	if resp[0] != funcReadInputRegisters|exceptionBit {
		t.Fatalf("expected exception response, got function byte 0x%02X", resp[0])
	}
	if resp[1] != ExceptionIllegalDataAddress {
		t.Fatalf("exception code = 0x%02X, want IllegalDataAddress", resp[1])
	}
}

func TestHandleUnsupportedFunctionReturnsIllegalFunction(t *testing.T) {
	regs := NewRegisterMap(nil, fixedNow(0))
	resp := handleRequest(regs, []byte{0x2B, 0x00})

	if resp[0] != 0x2B|exceptionBit {
		t.Fatalf("expected exception response echoing function 0x2B, got 0x%02X", resp[0])
	}
	if resp[1] != ExceptionIllegalFunction {
		t.Fatalf("exception code = 0x%02X, want IllegalFunction", resp[1])
	}
}

func TestHandleWriteSingleRegister(t *testing.T) {
	regs := NewRegisterMap(nil, fixedNow(0))
	req := make([]byte, 5)
	req[0] = funcWriteSingleRegister
	binary.BigEndian.PutUint16(req[1:3], 0)
	binary.BigEndian.PutUint16(req[3:5], 42)

	resp := handleRequest(regs, req)
	if resp[0] != funcWriteSingleRegister {
		t.Fatalf("function echo = 0x%02X, want 0x%02X", resp[0], funcWriteSingleRegister)
	}

	values, _ := regs.ReadHolding(0, 1)
	if values[0] != 42 {
		t.Fatalf("holding[0] = %d, want 42 after write", values[0])
	}
}

func TestHandleWriteMultipleRegisters(t *testing.T) {
	regs := NewRegisterMap(nil, fixedNow(0))
	payload := encodeRegisters([]uint16{5, 50})
	req := make([]byte, 0, 6+len(payload))
	req = append(req, funcWriteMultipleRegisters)
	addrCnt := make([]byte, 5)
	binary.BigEndian.PutUint16(addrCnt[0:2], 1)
	binary.BigEndian.PutUint16(addrCnt[2:4], 2)
	addrCnt[4] = byte(len(payload))
	req = append(req, addrCnt...)
	req = append(req, payload...)

	resp := handleRequest(regs, req)
	if resp[0] != funcWriteMultipleRegisters {
		t.Fatalf("function echo = 0x%02X, want 0x%02X", resp[0], funcWriteMultipleRegisters)
	}

	values, _ := regs.ReadHolding(1, 2)
	if values[0] != 5 || values[1] != 50 {
		t.Fatalf("holding[1:3] = %v, want [5 50]", values)
	}
}

func TestHandleWriteMultipleRegistersInvalidValueLeavesStateUnchanged(t *testing.T) {
	regs := NewRegisterMap(nil, fixedNow(0))
	payload := encodeRegisters([]uint16{500, 101}) // averaging=500 (1-100), gain=101 (0-100)
	req := make([]byte, 0, 6+len(payload))
	req = append(req, funcWriteMultipleRegisters)
	addrCnt := make([]byte, 5)
	binary.BigEndian.PutUint16(addrCnt[0:2], 1)
	binary.BigEndian.PutUint16(addrCnt[2:4], 2)
	addrCnt[4] = byte(len(payload))
	req = append(req, addrCnt...)
	req = append(req, payload...)

	resp := handleRequest(regs, req)
	if resp[0] != funcWriteMultipleRegisters|exceptionBit || resp[1] != ExceptionIllegalDataValue {
		t.Fatalf("expected IllegalDataValue exception, got % X", resp)
	}

	values, _ := regs.ReadHolding(1, 2)
	if values[0] != 20 || values[1] != 30 {
		t.Fatalf("rejected write should leave registers unchanged, got %v", values)
	}
}
