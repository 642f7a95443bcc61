package modbus

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/sctg-development/photoacoustic-core/internal/graph"
)

func startTestServer(t *testing.T, regs *RegisterMap) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr = ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(addr, regs, nil)

	ready := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			if c, err := net.DialTimeout("tcp", addr, 10*time.Millisecond); err == nil {
				c.Close()
				close(ready)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
	go srv.ListenAndServe(ctx)

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
	}
	return addr, cancel
}

func roundTrip(t *testing.T, conn net.Conn, pdu []byte) []byte {
	t.Helper()
	h := mbapHeader{transactionID: 1, unitID: 1, length: uint16(1 + len(pdu))}
	frame := append(encodeMBAPHeader(h), pdu...)
	if _, err := conn.Write(frame); err != nil {
		t.Fatalf("write: %v", err)
	}

	header := make([]byte, mbapHeaderLen)
	if _, err := io.ReadFull(conn, header); err != nil {
		t.Fatalf("read header: %v", err)
	}
	length := binary.BigEndian.Uint16(header[4:6])
	body := make([]byte, length-1)
	if _, err := io.ReadFull(conn, body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return body
}

// TestServerEndToEndRoundTrip covers scenario S5 over an actual TCP
// connection: write 42 to holding register 0, read it back, then read
// input register 0 after publishing a peak frequency of 1234.5 Hz.
func TestServerEndToEndRoundTrip(t *testing.T) {
	shared := graph.NewSharedData()
	regs := NewRegisterMap(shared, func() int64 { return 0 })
	addr, stop := startTestServer(t, regs)
	defer stop()

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	writeReq := make([]byte, 5)
	writeReq[0] = funcWriteSingleRegister
	binary.BigEndian.PutUint16(writeReq[1:3], 0)
	binary.BigEndian.PutUint16(writeReq[3:5], 42)
	writeResp := roundTrip(t, conn, writeReq)
	if writeResp[0] != funcWriteSingleRegister {
		t.Fatalf("write response function = 0x%02X", writeResp[0])
	}

	readResp := roundTrip(t, conn, buildReadRequest(funcReadHoldingRegisters, 0, 1))
	values := decodeRegisters(readResp[2:])
	if values[0] != 42 {
		t.Fatalf("holding[0] after write = %d, want 42", values[0])
	}

	shared.PublishPeak(graph.PeakReading{FrequencyHz: 1234.5, Amplitude: 1.0, At: time.Now()})
	inputResp := roundTrip(t, conn, buildReadRequest(funcReadInputRegisters, 0, 1))
	inputValues := decodeRegisters(inputResp[2:])
	if inputValues[0] != 12345 {
		t.Fatalf("input[0] frequency = %d, want 12345", inputValues[0])
	}
}

// TestServerRequestCountsTracksOutcomes confirms RequestCounts tallies a
// successful write, a successful read, and an illegal-address exception
// response under separate "function_code:outcome" keys.
func TestServerRequestCountsTracksOutcomes(t *testing.T) {
	shared := graph.NewSharedData()
	regs := NewRegisterMap(shared, func() int64 { return 0 })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := NewServer(addr, regs, nil)
	go srv.ListenAndServe(ctx)

	var conn net.Conn
	for i := 0; i < 50; i++ {
		if conn, err = net.DialTimeout("tcp", addr, 10*time.Millisecond); err == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if conn == nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	writeReq := make([]byte, 5)
	writeReq[0] = funcWriteSingleRegister
	binary.BigEndian.PutUint16(writeReq[1:3], 0)
	binary.BigEndian.PutUint16(writeReq[3:5], 7)
	roundTrip(t, conn, writeReq)

	roundTrip(t, conn, buildReadRequest(funcReadHoldingRegisters, 0, 1))

	// Out-of-range holding register address should produce an exception
	// response (IllegalDataAddress).
	roundTrip(t, conn, buildReadRequest(funcReadHoldingRegisters, 9999, 1))

	deadline := time.Now().Add(time.Second)
	var counts map[string]uint64
	for time.Now().Before(deadline) {
		counts = srv.RequestCounts()
		if len(counts) >= 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	writeKey := "0x" + funcHex(funcWriteSingleRegister) + ":ok"
	readKey := "0x" + funcHex(funcReadHoldingRegisters) + ":ok"
	exceptionKey := "0x" + funcHex(funcReadHoldingRegisters) + ":exception"

	if counts[writeKey] != 1 {
		t.Errorf("counts[%q] = %d, want 1 (got %v)", writeKey, counts[writeKey], counts)
	}
	if counts[readKey] != 1 {
		t.Errorf("counts[%q] = %d, want 1 (got %v)", readKey, counts[readKey], counts)
	}
	if counts[exceptionKey] != 1 {
		t.Errorf("counts[%q] = %d, want 1 (got %v)", exceptionKey, counts[exceptionKey], counts)
	}
}

func funcHex(code byte) string {
	const hexDigits = "0123456789ABCDEF"
	return string([]byte{hexDigits[code>>4], hexDigits[code&0x0F]})
}

func TestServerStopsOnContextCancel(t *testing.T) {
	regs := NewRegisterMap(nil, func() int64 { return 0 })
	addr, stop := startTestServer(t, regs)
	stop()
	time.Sleep(50 * time.Millisecond)

	if _, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		t.Error("expected dial to fail after server shutdown")
	}
}
