// Package database is the data access layer. Every statement it issues is
// parameterized; callers pass values separately from statement text and
// gorm binds them for the active dialect.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cafe-ordering/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StorageError reports a connectivity or constraint failure from the store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsDuplicate reports whether err is a unique constraint violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// Record is one result row keyed by column name.
type Record map[string]string

// ResultSet keeps the column order next to the records so it can be printed
// as a table.
type ResultSet struct {
	Columns []string
	Records []Record
}

// Store owns the single store connection for the lifetime of the process.
type Store struct {
	db  *gorm.DB
	log *logrus.Logger
}

func New(db *gorm.DB, log *logrus.Logger) *Store {
	return &Store{db: db, log: log}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
	)
	if err != nil {
		return &StorageError{Op: "migrate", Err: err}
	}
	s.log.Info("Schema migrated.")
	return nil
}

// ExecuteMutation runs an INSERT, UPDATE or DELETE and returns the number
// of affected rows.
func (s *Store) ExecuteMutation(ctx context.Context, statement string, params ...any) (int64, error) {
	res := s.db.WithContext(ctx).Exec(statement, params...)
	if res.Error != nil {
		s.log.WithError(res.Error).WithField("statement", statement).Error("Mutation failed.")
		return 0, &StorageError{Op: "exec", Err: res.Error}
	}
	s.log.WithFields(logrus.Fields{"statement": statement, "rows": res.RowsAffected}).Debug("Mutation executed.")
	return res.RowsAffected, nil
}

// ExecuteQuery runs a SELECT and returns every row with values rendered as
// strings. NULL becomes the empty string.
func (s *Store) ExecuteQuery(ctx context.Context, statement string, params ...any) (ResultSet, error) {
	rows, err := s.db.WithContext(ctx).Raw(statement, params...).Rows()
	if err != nil {
		s.log.WithError(err).WithField("statement", statement).Error("Query failed.")
		return ResultSet{}, &StorageError{Op: "query", Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return ResultSet{}, &StorageError{Op: "columns", Err: err}
	}
	rs := ResultSet{Columns: cols}
	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return ResultSet{}, &StorageError{Op: "scan", Err: err}
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			rec[c] = values[i].String
		}
		rs.Records = append(rs.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return ResultSet{}, &StorageError{Op: "rows", Err: err}
	}
	s.log.WithFields(logrus.Fields{"statement": statement, "rows": len(rs.Records)}).Debug("Query executed.")
	return rs, nil
}

// ExecuteScalarCount runs a statement that yields a single integer, usually
// a SELECT COUNT(*), without materializing the rows being counted.
func (s *Store) ExecuteScalarCount(ctx context.Context, statement string, params ...any) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Raw(statement, params...).Row().Scan(&n); err != nil {
		s.log.WithError(err).WithField("statement", statement).Error("Count failed.")
		return 0, &StorageError{Op: "count", Err: err}
	}
	return n, nil
}

// QueryInto scans the result of a SELECT into dest, a pointer to a model or
// a slice of models.
func (s *Store) QueryInto(ctx context.Context, dest any, statement string, params ...any) error {
	if err := s.db.WithContext(ctx).Raw(statement, params...).Scan(dest).Error; err != nil {
		s.log.WithError(err).WithField("statement", statement).Error("Query failed.")
		return &StorageError{Op: "query", Err: err}
	}
	return nil
}

// Transaction runs fn against a Store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, log: s.log})
	})
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return &StorageError{Op: "close", Err: err}
	}
	if err := sqlDB.Close(); err != nil {
		return &StorageError{Op: "close", Err: err}
	}
	s.log.Info("Closed the database.")
	return nil
}
