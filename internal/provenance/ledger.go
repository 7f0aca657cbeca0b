// Package provenance records where a renamed entry came from, without
// storing either name in the clear.
//
// A record is keyed by a fingerprint of the new name and holds the previous
// name encrypted under a key derived from the new name. Only someone who
// knows the current name can find its record or read the previous name.
package provenance

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/roach88/fdn/internal/namecrypt"
	"github.com/roach88/fdn/internal/store"
)

// Record is a stored provenance entry.
type Record = store.ProvenanceRow

// Backend persists provenance rows. *store.Store implements it.
type Backend interface {
	InsertProvenance(ctx context.Context, row store.ProvenanceRow) (int64, error)
	LatestProvenance(ctx context.Context, fingerprint string) (store.ProvenanceRow, bool, error)
	DeleteProvenance(ctx context.Context, id int64) (bool, error)
}

// Ledger writes and reads provenance records for one run.
type Ledger struct {
	backend Backend
	runID   string
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithRunIDGenerator sets the generator the run id is drawn from.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(l *Ledger) { l.runID = g.Generate() }
}

// WithClock sets the time source for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a Ledger over backend. Without options the run id is a fresh
// UUIDv7 and timestamps come from time.Now.
func New(backend Backend, opts ...Option) *Ledger {
	l := &Ledger{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	if l.runID == "" {
		l.runID = UUIDv7Generator{}.Generate()
	}
	return l
}

// RunID identifies the records this ledger writes.
func (l *Ledger) RunID() string {
	return l.runID
}

// Record stores that the entry now named current was previously named
// previous. Records are append-only; renaming to the same name twice
// leaves two records and the newer one wins on lookup.
func (l *Ledger) Record(ctx context.Context, previous, current string) (Record, error) {
	plaintext := []byte(hex.EncodeToString([]byte(previous)))
	blob, err := namecrypt.Seal(current, plaintext)
	if err != nil {
		return Record{}, fmt.Errorf("record provenance: %w", err)
	}

	rec := Record{
		Fingerprint: namecrypt.Fingerprint(current),
		CipherBlob:  blob,
		UseCount:    1,
		RunID:       l.runID,
		CreatedAt:   l.now().UTC(),
	}
	rec.ID, err = l.backend.InsertProvenance(ctx, rec)
	if err != nil {
		return Record{}, fmt.Errorf("record provenance: %w", err)
	}
	return rec, nil
}

// Find returns the most recent record for current. found is false when the
// name has no provenance.
func (l *Ledger) Find(ctx context.Context, current string) (rec Record, found bool, err error) {
	rec, found, err = l.backend.LatestProvenance(ctx, namecrypt.Fingerprint(current))
	if err != nil {
		return Record{}, false, fmt.Errorf("find provenance: %w", err)
	}
	return rec, found, nil
}

// Open decrypts the previous name held by rec. The returned bytes are the
// exact previous name, valid UTF-8 or not. Failures are *CorruptError.
func (l *Ledger) Open(rec Record, current string) (string, error) {
	plaintext, err := namecrypt.Open(current, rec.CipherBlob)
	if err != nil {
		return "", &CorruptError{RecordID: rec.ID, Err: err}
	}
	previous, err := hex.DecodeString(string(plaintext))
	if err != nil {
		return "", &CorruptError{RecordID: rec.ID, Err: fmt.Errorf("decode previous name: %w", err)}
	}
	return string(previous), nil
}

// Lookup finds and opens the record for current in one step.
func (l *Ledger) Lookup(ctx context.Context, current string) (previous string, rec Record, found bool, err error) {
	rec, found, err = l.Find(ctx, current)
	if err != nil || !found {
		return "", rec, found, err
	}
	previous, err = l.Open(rec, current)
	if err != nil {
		return "", rec, true, err
	}
	return previous, rec, true, nil
}

// Consume deletes rec once it has been used. Multi-use records survive;
// consumed reports whether the row was removed.
func (l *Ledger) Consume(ctx context.Context, rec Record) (consumed bool, err error) {
	if rec.UseCount != 1 {
		return false, nil
	}
	consumed, err = l.backend.DeleteProvenance(ctx, rec.ID)
	if err != nil {
		return false, fmt.Errorf("consume provenance: %w", err)
	}
	return consumed, nil
}
