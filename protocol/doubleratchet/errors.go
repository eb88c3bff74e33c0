package doubleratchet

import "errors"

var (
	ErrNotReady            = errors.New("sending chain not established")
	ErrHeaderDecryptFailed = errors.New("header decrypt failed")
	ErrTooManySkipped      = errors.New("skipping too many message keys")
)
