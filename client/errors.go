package client

import "fmt"

// VerifyError locates the first cell where read-back data differed from
// what was programmed.
type VerifyError struct {
	Offset   int
	Expected byte
	Actual   byte
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verification failed at address 0x%04X: wrote 0x%02X, read 0x%02X",
		e.Offset, e.Expected, e.Actual)
}
