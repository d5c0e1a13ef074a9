package swo

// Kind classifies a single poll response from the probe.
type Kind uint8

const (
	Empty       Kind = iota // buffer had no new data
	Incremental             // fragment of data since the previous poll
	Total                   // full dump of the capture buffer
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Incremental:
		return "incremental"
	case Total:
		return "total"
	}
	return "unknown"
}

// PollResult is one decoded poll response.
//
// For Incremental results, Data is the new fragment and Start/End are the
// buffer fill levels it spans. For Total results, Data is the entire capture
// buffer. Data aliases the scratch buffer the poll decoded from, so it is
// only valid until the next poll.
type PollResult struct {
	Kind  Kind
	Epoch uint8  // capture buffer generation, wraps at 255
	Start uint16 // first buffer offset covered (Incremental only)
	End   uint16 // offset one past the last byte covered (Incremental only)
	Data  []byte
}
