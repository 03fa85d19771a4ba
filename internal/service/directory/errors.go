package directory

import (
	"errors"
	"fmt"
)

// ErrFetchFailed matches every *FetchError via errors.Is.
var ErrFetchFailed = errors.New("fetch users failed")

// Stage records where a fetch broke. It is diagnostic only: every stage has
// the same outcome for the store.
type Stage string

const (
	StageTransport Stage = "transport"
	StageStatus    Stage = "status"
	StageDecode    Stage = "decode"
)

// FetchError is the single failure kind of a users fetch.
type FetchError struct {
	Stage    Stage
	Endpoint string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Stage == StageStatus {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.Endpoint, e.Stage, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFetchFailed) true for any FetchError.
func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }
