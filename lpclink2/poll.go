package lpclink2

import (
	"fmt"

	"swocat/swo"
)

// Poll asks the probe for captured trace data. scratch must hold at least
// MaxPacket bytes. The returned result's Data aliases scratch, so it is
// only valid until the next Poll on the same buffer.
func (c *Client) Poll(scratch []byte) (swo.PollResult, error) {
	if len(scratch) < MaxPacket {
		return swo.PollResult{}, fmt.Errorf("poll scratch buffer too small (%d bytes, need %d)",
			len(scratch), MaxPacket)
	}

	// Poll responses do not echo the opcode; the first byte is the kind.
	_, err := c.dev.Write([]byte{CMD_POLL})
	if err != nil {
		return swo.PollResult{}, fmt.Errorf("failed to write command 0x%02x: %w", CMD_POLL, err)
	}
	n, err := c.dev.Read(scratch)
	if err != nil {
		return swo.PollResult{}, fmt.Errorf("failed to read response to command 0x%02x: %w", CMD_POLL, err)
	}
	if n < 2 {
		return swo.PollResult{}, fmt.Errorf("command 0x%02x: %w (%d bytes)", CMD_POLL, ErrShortResponse, n)
	}

	kind, epoch := scratch[0], scratch[1]
	switch kind {
	case POLL_INCREMENTAL:
		return decodeIncremental(epoch, scratch[:n])

	case POLL_TOTAL:
		if n < 2+dumpSize {
			return swo.PollResult{}, fmt.Errorf("command 0x%02x: %w (%d bytes, dump needs %d)",
				CMD_POLL, ErrShortResponse, n, 2+dumpSize)
		}
		return swo.PollResult{
			Kind:  swo.Total,
			Epoch: epoch,
			Data:  scratch[2 : 2+dumpSize],
		}, nil

	default:
		return swo.PollResult{}, fmt.Errorf("command 0x%02x: %w (kind 0x%02x)", CMD_POLL, ErrBadKind, kind)
	}
}

// decodeIncremental parses an incremental poll response.
// Layout: kind, epoch, 3 bytes of packed fill levels, fragment bytes.
func decodeIncremental(epoch byte, resp []byte) (swo.PollResult, error) {
	if len(resp) < 5 {
		return swo.PollResult{}, fmt.Errorf("command 0x%02x: %w (%d bytes)", CMD_POLL, ErrShortResponse, len(resp))
	}

	// The fill levels are packed little-endian into 24 bits: bits 0-11
	// hold the fragment start, bits 12-23 one past its end. All zeros
	// means the capture buffer had nothing new.
	packed := uint32(resp[2]) | uint32(resp[3])<<8 | uint32(resp[4])<<16
	if packed == 0 {
		return swo.PollResult{Kind: swo.Empty, Epoch: epoch}, nil
	}
	start := uint16(packed & 0xfff)
	end := uint16(packed >> 12)
	if end < start {
		return swo.PollResult{}, fmt.Errorf("command 0x%02x: %w (start 0x%03x, end 0x%03x)",
			CMD_POLL, ErrInvalidFill, start, end)
	}
	if len(resp) < 5+int(end-start) {
		return swo.PollResult{}, fmt.Errorf("command 0x%02x: %w (%d bytes, fragment needs %d)",
			CMD_POLL, ErrShortResponse, len(resp), 5+int(end-start))
	}

	return swo.PollResult{
		Kind:  swo.Incremental,
		Epoch: epoch,
		Start: start,
		End:   end,
		Data:  resp[5 : 5+(end-start)],
	}, nil
}
