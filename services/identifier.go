package services

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

const (
	ApplicationNumberPrefix = "APP"
	TransactionIDPrefix     = "TXN"
)

// IdentifierGenerator produces human-readable record identifiers.
type IdentifierGenerator interface {
	Generate(prefix string) string
}

// TimeOrderedIdentifierGenerator builds prefix + 32 upper-case hex digits of
// a UUIDv7: a millisecond timestamp followed by 74 random bits, so ids sort
// by creation time.
type TimeOrderedIdentifierGenerator struct{}

func (TimeOrderedIdentifierGenerator) Generate(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does
		id = uuid.New()
	}
	return prefix + strings.ToUpper(hex.EncodeToString(id[:]))
}
