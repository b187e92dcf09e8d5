// internal/scope/errors.go
package scope

import (
	"errors"
	"fmt"
)

// Status block error codes. 0 means no error.
const (
	CodeTransport      uint16 = 0x0001
	CodeModelMismatch  uint16 = 0x0002
	CodeFlash          uint16 = 0x0003
	CodeFPGANotLoaded  uint16 = 0x0004
	CodeConfigRejected uint16 = 0x0005
	CodeNotReady       uint16 = 0x0006
	CodeUnknown        uint16 = 0xFFFF
)

// codeError is a sentinel that carries a status code.
type codeError struct {
	code uint16
	msg  string
}

func (e *codeError) Error() string { return e.msg }
func (e *codeError) Code() uint16  { return e.code }

var (
	// ErrFPGANotLoaded is terminal for the session; the fix is on the user's side.
	ErrFPGANotLoaded error = &codeError{
		code: CodeFPGANotLoaded,
		msg:  "scope: FPGA not loaded: run the vendor application once with the scope attached, then reconnect",
	}

	// ErrNotReady is returned by verbs used before bring-up completed.
	ErrNotReady error = &codeError{code: CodeNotReady, msg: "scope: session not configured"}

	// ErrConfigRejected wraps invalid settings. Nothing is written to the device.
	ErrConfigRejected error = &codeError{code: CodeConfigRejected, msg: "scope: configuration rejected"}
)

// ModelMismatchError means the identify reply was not a VDS1022.
type ModelMismatchError struct {
	Got uint32
}

func (e *ModelMismatchError) Error() string {
	return fmt.Sprintf("scope: unexpected model code %d (want VDS1022)", e.Got)
}

func (e *ModelMismatchError) Code() uint16 { return CodeModelMismatch }

// FlashError wraps a flash image rejection.
type FlashError struct {
	Err error
}

func (e *FlashError) Error() string { return "scope: flash: " + e.Err.Error() }
func (e *FlashError) Unwrap() error { return e.Err }
func (e *FlashError) Code() uint16  { return CodeFlash }

// TransportError is an I/O failure on one device transaction.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("scope: transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
func (e *TransportError) Code() uint16  { return CodeTransport }

// ErrorCode maps err to a status block code.
// nil maps to 0; errors without a code map to CodeUnknown.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}
	var c interface{ Code() uint16 }
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeUnknown
}

func rejectf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfigRejected}, args...)...)
}
