package transport

import "errors"

var (
	ErrInvalidCertificate = errors.New("invalid certificate")
	ErrListenerFailed     = errors.New("failed to create listener")
	ErrDialFailed         = errors.New("dial failed")
	ErrMessageTooLarge    = errors.New("message too large")
	ErrRejected           = errors.New("call rejected")
	ErrMalformedResponse  = errors.New("malformed response")
)
