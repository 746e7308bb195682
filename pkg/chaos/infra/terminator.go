package infra

import "os"

// Terminator abstracts the process-kill action of the pod-crash simulation
// so its scheduling and probability logic can be exercised in tests without
// killing the test runner.
type Terminator interface {
	Terminate(code int)
}

type osTerminator struct{}

func (osTerminator) Terminate(code int) {
	os.Exit(code)
}

// NewOSTerminator returns the production terminator, a non-graceful process
// exit. Recovery is delegated to the external process supervisor.
func NewOSTerminator() Terminator {
	return osTerminator{}
}
