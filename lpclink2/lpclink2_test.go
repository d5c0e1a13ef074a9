package lpclink2

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// scriptDevice is a canned transport: it records every command written
// and replays a fixed sequence of responses.
type scriptDevice struct {
	writes    [][]byte
	responses [][]byte
	closed    bool
}

func (d *scriptDevice) Write(p []byte) (int, error) {
	d.writes = append(d.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (d *scriptDevice) Read(p []byte) (int, error) {
	if len(d.responses) == 0 {
		return 0, io.EOF
	}
	resp := d.responses[0]
	d.responses = d.responses[1:]
	return copy(p, resp), nil
}

func (d *scriptDevice) Close() error {
	d.closed = true
	return nil
}

func TestAnnounceMode(t *testing.T) {
	dev := &scriptDevice{responses: [][]byte{{CMD_ANNOUNCE, announceTag}}}
	c := NewClient(dev)

	if err := c.AnnounceMode(DefaultMode); err != nil {
		t.Fatalf("AnnounceMode failed: %v", err)
	}
	want := []byte{CMD_ANNOUNCE, DefaultMode}
	if len(dev.writes) != 1 || !bytes.Equal(dev.writes[0], want) {
		t.Errorf("sent %x, expected %x", dev.writes, want)
	}
}

func TestAnnounceModeBadTag(t *testing.T) {
	dev := &scriptDevice{responses: [][]byte{{CMD_ANNOUNCE, 0x99}}}
	c := NewClient(dev)

	err := c.AnnounceMode(DefaultMode)
	if !errors.Is(err, ErrBadTag) {
		t.Fatalf("expected ErrBadTag, got %v", err)
	}
}

func TestAnnounceModeBadEcho(t *testing.T) {
	dev := &scriptDevice{responses: [][]byte{{0x77, announceTag}}}
	c := NewClient(dev)

	err := c.AnnounceMode(DefaultMode)
	if !errors.Is(err, ErrBadEcho) {
		t.Fatalf("expected ErrBadEcho, got %v", err)
	}
}

func TestQueryMaxRate(t *testing.T) {
	// The supported rate lives in bytes 5-8 of the response,
	// little-endian. 0x00b71b00 is 12 MHz.
	resp := []byte{CMD_UART_INFO, 0, 0, 0, 0, 0x00, 0x1b, 0xb7, 0x00}
	dev := &scriptDevice{responses: [][]byte{resp}}
	c := NewClient(dev)

	rate, err := c.QueryMaxRate()
	if err != nil {
		t.Fatalf("QueryMaxRate failed: %v", err)
	}
	if rate != 12000000 {
		t.Errorf("rate = %d, expected 12000000", rate)
	}
}

func TestSetBitRate(t *testing.T) {
	resp := []byte{CMD_SET_BIT_RATE, 0x00, 0xc2, 0x01, 0x00} // 115200
	dev := &scriptDevice{responses: [][]byte{resp}}
	c := NewClient(dev)

	rate, err := c.SetBitRate(115200)
	if err != nil {
		t.Fatalf("SetBitRate failed: %v", err)
	}
	if rate != 115200 {
		t.Errorf("achieved rate = %d, expected 115200", rate)
	}

	// The request goes out as the opcode plus the rate, little-endian.
	want := []byte{CMD_SET_BIT_RATE, 0x00, 0xc2, 0x01, 0x00}
	if len(dev.writes) != 1 || !bytes.Equal(dev.writes[0], want) {
		t.Errorf("sent %x, expected %x", dev.writes, want)
	}
}

func TestSetBitRateRounded(t *testing.T) {
	// The probe answers with what its dividers produced, not the request.
	resp := []byte{CMD_SET_BIT_RATE, 0x00, 0x20, 0x1c, 0x00} // 1843200
	dev := &scriptDevice{responses: [][]byte{resp}}
	c := NewClient(dev)

	rate, err := c.SetBitRate(2000000)
	if err != nil {
		t.Fatalf("SetBitRate failed: %v", err)
	}
	if rate != 1843200 {
		t.Errorf("achieved rate = %d, expected 1843200", rate)
	}
}

func TestShortResponse(t *testing.T) {
	dev := &scriptDevice{responses: [][]byte{{CMD_UART_INFO, 1, 2}}}
	c := NewClient(dev)

	_, err := c.QueryMaxRate()
	if !errors.Is(err, ErrShortResponse) {
		t.Fatalf("expected ErrShortResponse, got %v", err)
	}
}

func TestTransportErrorWrapped(t *testing.T) {
	dev := &scriptDevice{} // no responses, Read reports EOF
	c := NewClient(dev)

	err := c.AnnounceMode(DefaultMode)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected wrapped io.EOF, got %v", err)
	}
}

func TestClose(t *testing.T) {
	dev := &scriptDevice{}
	c := NewClient(dev)

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !dev.closed {
		t.Error("Close did not reach the device")
	}
}
