package lpclink2

import (
	"encoding/binary"
	"fmt"

	"swocat/transport"
)

const (
	VendorID  = 0x1fc9 // NXP Semiconductors
	ProductID = 0x0090 // LPC-Link2 CMSIS-DAP firmware
)

// Command opcodes
const (
	CMD_SET_BIT_RATE = 0x01
	CMD_POLL         = 0x02
	CMD_UART_INFO    = 0x03
	CMD_ANNOUNCE     = 0x1f
)

// Poll response kinds
const (
	POLL_INCREMENTAL = 0x04
	POLL_TOTAL       = 0x82
)

const (
	// TraceInterface is the USB interface number that carries the trace
	// protocol on a stock LPC-Link2.
	TraceInterface = 4

	// DefaultMode is the mode byte the vendor tools announce. Its meaning
	// is undocumented.
	DefaultMode = 0xff

	// MaxPacket is the size of the largest response report. Poll scratch
	// buffers must hold at least this much.
	MaxPacket = 1024

	announceTag = 0x38 // second byte of a valid announce response
	dumpSize    = 1022 // payload bytes in a total-dump response
)

// Client speaks the SWO trace protocol to an LPC-Link2 probe over an open
// transport device.
type Client struct {
	dev transport.Device
}

// NewClient wraps an already opened device.
func NewClient(dev transport.Device) *Client {
	return &Client{dev: dev}
}

// Close releases the underlying device.
func (c *Client) Close() error {
	return c.dev.Close()
}

// command sends one command report and reads the response into resp.
// The first byte of every response echoes the command opcode.
func (c *Client) command(cmd, resp []byte) (int, error) {
	_, err := c.dev.Write(cmd)
	if err != nil {
		return 0, fmt.Errorf("failed to write command 0x%02x: %w", cmd[0], err)
	}

	n, err := c.dev.Read(resp)
	if err != nil {
		return 0, fmt.Errorf("failed to read response to command 0x%02x: %w", cmd[0], err)
	}
	if n < 1 {
		return 0, fmt.Errorf("command 0x%02x: %w (0 bytes)", cmd[0], ErrShortResponse)
	}

	// Validate command echo matches
	if resp[0] != cmd[0] {
		return 0, fmt.Errorf("command 0x%02x: %w (0x%02x != 0x%02x)",
			cmd[0], ErrBadEcho, resp[0], cmd[0])
	}
	return n, nil
}

// AnnounceMode performs the startup handshake. The probe will not report
// trace data until a mode has been announced; DefaultMode is the value
// to use unless you know better.
func (c *Client) AnnounceMode(mode byte) error {
	resp := make([]byte, MaxPacket)
	n, err := c.command([]byte{CMD_ANNOUNCE, mode}, resp)
	if err != nil {
		return err
	}
	if n < 2 {
		return fmt.Errorf("command 0x%02x: %w (%d bytes)", CMD_ANNOUNCE, ErrShortResponse, n)
	}
	if resp[1] != announceTag {
		return fmt.Errorf("command 0x%02x: %w (tag 0x%02x)", CMD_ANNOUNCE, ErrBadTag, resp[1])
	}
	return nil
}

// QueryMaxRate asks the probe for the highest SWO bit rate it supports,
// in bits per second.
func (c *Client) QueryMaxRate() (uint32, error) {
	resp := make([]byte, MaxPacket)
	n, err := c.command([]byte{CMD_UART_INFO}, resp)
	if err != nil {
		return 0, err
	}
	if n < 9 {
		return 0, fmt.Errorf("command 0x%02x: %w (%d bytes)", CMD_UART_INFO, ErrShortResponse, n)
	}
	return binary.LittleEndian.Uint32(resp[5:9]), nil
}

// SetBitRate requests an SWO bit rate in bits per second and returns the
// rate the probe actually configured. The probe rounds to what its clock
// dividers can produce, so the result may differ from the request.
func (c *Client) SetBitRate(rate uint32) (uint32, error) {
	cmd := make([]byte, 5)
	cmd[0] = CMD_SET_BIT_RATE
	binary.LittleEndian.PutUint32(cmd[1:5], rate)

	resp := make([]byte, MaxPacket)
	n, err := c.command(cmd, resp)
	if err != nil {
		return 0, err
	}
	if n < 5 {
		return 0, fmt.Errorf("command 0x%02x: %w (%d bytes)", CMD_SET_BIT_RATE, ErrShortResponse, n)
	}
	return binary.LittleEndian.Uint32(resp[1:5]), nil
}
