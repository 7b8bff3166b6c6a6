package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"github.com/lib/pq"
)

// SQLSTATE codes the repositories react to.
const (
	pqUniqueViolation     pq.ErrorCode = "23505"
	pqForeignKeyViolation pq.ErrorCode = "23503"
	pqCheckViolation      pq.ErrorCode = "23514"
	pqSerializationFail   pq.ErrorCode = "40001"
	pqDeadlockDetected    pq.ErrorCode = "40P01"
)

// Constraint names declared in schema.sql.
const (
	constraintIPOSymbol          = "uq_ipos_symbol"
	constraintApplicationUserIPO = "uq_applications_user_ipo"
	constraintApplicationNumber  = "uq_applications_number"
	constraintTransactionID      = "uq_transactions_transaction_id"
)

// CodeIdentifierCollision marks a unique violation on a generated
// application number or transaction id. Callers may retry with a new one.
const CodeIdentifierCollision = "IDENTIFIER_COLLISION"

const MessageDuplicateApplication = "You have already applied for this IPO"

func asPQError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

// translateError maps driver errors onto the service error taxonomy.
func translateError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return shared.NewNotFoundError("record not found")
	}

	pqErr, ok := asPQError(err)
	if !ok {
		return shared.NewDatabaseError(operation, err)
	}

	switch pqErr.Code {
	case pqUniqueViolation:
		switch pqErr.Constraint {
		case constraintApplicationUserIPO:
			return shared.NewConflictError(MessageDuplicateApplication, err)
		case constraintIPOSymbol:
			return shared.NewConflictError("An IPO with this symbol already exists", err)
		case constraintApplicationNumber, constraintTransactionID:
			return shared.NewServiceError(shared.ErrorCategoryConflict, CodeIdentifierCollision,
				"generated identifier already in use", "database", operation, true, err)
		}
		return shared.NewConflictError("duplicate record", err)
	case pqForeignKeyViolation:
		return shared.NewInvalidStateError("record is referenced by other records")
	case pqCheckViolation:
		return shared.NewValidationError("record violates a data constraint: " + pqErr.Constraint)
	}
	return shared.NewDatabaseError(operation, err)
}

// IsIdentifierCollision reports whether err is a generated identifier clash.
func IsIdentifierCollision(err error) bool {
	var serviceErr *shared.ServiceError
	return errors.As(err, &serviceErr) && serviceErr.Code == CodeIdentifierCollision
}

// isRetryableError determines if a database error is transient.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if pqErr, ok := asPQError(err); ok {
		if pqErr.Code == pqSerializationFail || pqErr.Code == pqDeadlockDetected {
			return true
		}
		// class 08: connection exceptions
		return strings.HasPrefix(string(pqErr.Code), "08")
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"bad connection",
		"timeout",
		"temporary failure",
		"server shutdown",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
