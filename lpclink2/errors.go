package lpclink2

import "errors"

// Protocol validation errors. Each is wrapped with the opcode and the
// offending bytes at the point of detection; match with errors.Is.
var (
	// ErrBadEcho means a response did not start with the command opcode.
	ErrBadEcho = errors.New("unexpected response")

	// ErrBadTag means the announce handshake returned an unknown tag,
	// suggesting the device is not running trace-capable firmware.
	ErrBadTag = errors.New("unexpected announce response")

	// ErrBadKind means a poll returned an unrecognized response kind.
	ErrBadKind = errors.New("unexpected poll response")

	// ErrInvalidFill means a poll reported fill levels that run backwards.
	ErrInvalidFill = errors.New("invalid fill levels")

	// ErrShortResponse means the device returned fewer bytes than the
	// response layout requires.
	ErrShortResponse = errors.New("short response")
)
