package upstream

import "fmt"

// ConnectivityError reports a network-level failure reaching the voice
// backend: connection refused, timeout, DNS failure. It is distinct
// from a backend error response, which is never an error here: the
// backend's status and body are relayed verbatim instead.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("failed to connect to backend: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}
