package provenance

import (
	"errors"
	"fmt"
)

// ErrCorrupt matches any *CorruptError via errors.Is.
var ErrCorrupt = errors.New("provenance record corrupt")

// CorruptError reports a record whose ciphertext does not decrypt under the
// current name, or whose plaintext is not a valid hex encoding.
type CorruptError struct {
	RecordID int64
	Err      error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("provenance record %d corrupt: %v", e.RecordID, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrCorrupt) hold for every CorruptError.
func (e *CorruptError) Is(target error) bool { return target == ErrCorrupt }
