package repositories

import (
	"errors"

	"tokoorders/internal/apperrors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

const retryMessage = "concurrent update conflict, retry the request"

// Postgres SQLSTATE codes that mean the transaction lost a race.
var pgConflictCodes = map[string]bool{
	"23505": true, // unique_violation
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
}

// classify turns a driver error into an apperrors value.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Conflict(op+": duplicate key", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgConflictCodes[pgErr.Code] {
		return apperrors.Conflict(retryMessage, err)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch {
		case liteErr.Code == sqlite3.ErrBusy, liteErr.Code == sqlite3.ErrLocked:
			return apperrors.Conflict(retryMessage, err)
		case liteErr.ExtendedCode == sqlite3.ErrConstraintUnique, liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return apperrors.Conflict(op+": duplicate key", err)
		}
	}

	return apperrors.StoreUnavailable(op, err)
}
