package proto

import "fmt"

// ErrorCode enumerates protocol-level errors. They are fatal to the
// offending client; the server keeps running.
type ErrorCode uint32

const (
	ErrAlreadyConstrained ErrorCode = iota + 1
	ErrInvalidSurfaceRole
	ErrTouchUpWithCoordinate
	ErrNoMemory
	ErrInvalidObject
)

func (c ErrorCode) String() string {
	switch c {
	case ErrAlreadyConstrained:
		return "already_constrained"
	case ErrInvalidSurfaceRole:
		return "invalid_surface_role"
	case ErrTouchUpWithCoordinate:
		return "touch_up_with_coordinate"
	case ErrNoMemory:
		return "no_memory"
	case ErrInvalidObject:
		return "invalid_object"
	}
	return fmt.Sprintf("error(%d)", uint32(c))
}

// ProtocolError reports an illegal client request.
type ProtocolError struct {
	Code    ErrorCode
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %s: %s", e.Code, e.Message)
}

// NewProtocolError builds a ProtocolError with a formatted message.
func NewProtocolError(code ErrorCode, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Code: code, Message: fmt.Sprintf(format, args...)}
}
