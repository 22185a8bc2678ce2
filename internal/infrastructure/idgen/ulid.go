package idgen

import (
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// TransactionPrefix marks payment transaction identifiers.
const TransactionPrefix = "TXN-"

// ULIDGenerator issues TXN-<ulid> identifiers. ULIDs drawn from the default
// entropy source increase strictly within a process, so identifiers sort in
// issue order and are never reused.
type ULIDGenerator struct {
	now func() time.Time
}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{now: time.Now}
}

func (g *ULIDGenerator) NewTransactionID() string {
	id := ulid.MustNew(ulid.Timestamp(g.now()), ulid.DefaultEntropy())
	return TransactionPrefix + id.String()
}

// ParseTransactionID extracts the ULID of a transaction identifier.
func ParseTransactionID(s string) (ulid.ULID, error) {
	raw, ok := strings.CutPrefix(s, TransactionPrefix)
	if !ok {
		return ulid.ULID{}, errors.New("transaction id must start with " + TransactionPrefix)
	}
	id, err := ulid.Parse(raw)
	if err != nil {
		return ulid.ULID{}, errors.New("invalid transaction id format")
	}
	return id, nil
}
