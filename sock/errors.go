package sock

import "errors"

// Common errors for socket operations
var (
	ErrUnknownType     = errors.New("unknown socket type")
	ErrUnsupportedType = errors.New("socket type not supported by transport")
	ErrBindFailed      = errors.New("failed to bind endpoint")
	ErrConnectFailed   = errors.New("failed to connect endpoint")
	ErrNotSupported    = errors.New("operation not supported by transport")
	ErrEndpointTooLong = errors.New("endpoint exceeds 255 characters")
	ErrPictureMismatch = errors.New("message does not match picture")
	ErrInvalidInteger  = errors.New("frame is not a decimal integer")
)
