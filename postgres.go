package dbmap

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

type PGConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// ConnectPostgresql opens a PostgreSQL connection through the pgx stdlib
// driver.
func ConnectPostgresql(config PGConfig) (*sqlx.DB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		config.User, config.Password, config.Host, config.Port, config.Database)
	return sqlx.Open("pgx", connStr)
}

// CreatePostgresRepository builds a Repository for T backed by PostgreSQL.
func CreatePostgresRepository[K comparable, T any](db *sqlx.DB, options ...RepositoryOption[T]) (Repository[K, T], error) {
	return newRepository[K, T](db, postgresDialect{}, options...)
}

type postgresDialect struct{}

func (postgresDialect) name() string { return "postgres" }

func (postgresDialect) wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w. %s", ErrNoRow, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%w. %s", ErrKeyAlreadyExists, err)
		}
	}

	return err
}

func (postgresDialect) ignoreConflict(insertSQL string) string {
	return insertSQL + " ON CONFLICT DO NOTHING"
}

func (postgresDialect) columnType(fd FieldDef) (string, error) {
	switch fd.Category {
	case CategoryIdentifier:
		return "UUID", nil
	case CategoryTimestamp:
		return "TIMESTAMPTZ", nil
	case CategoryInteger:
		switch fd.Base.Kind() {
		case reflect.Int64, reflect.Uint64, reflect.Int, reflect.Uint:
			return "BIGINT", nil
		case reflect.Int16, reflect.Int8, reflect.Uint8:
			return "SMALLINT", nil
		default:
			return "INTEGER", nil
		}
	case CategoryEnum:
		if fd.Base.Kind() == reflect.String {
			return "TEXT", nil
		}
		return "INTEGER", nil
	}

	switch fd.Base.Kind() {
	case reflect.String:
		if fd.Size > 0 {
			return fmt.Sprintf("VARCHAR(%d)", fd.Size), nil
		}
		return "TEXT", nil
	case reflect.Float32, reflect.Float64:
		return "DOUBLE PRECISION", nil
	case reflect.Bool:
		return "BOOLEAN", nil
	case reflect.Slice:
		if fd.Base.Elem().Kind() == reflect.Uint8 {
			return "BYTEA", nil
		}
	}

	return "", fmt.Errorf("unknown postgres datatype for Go type %s", fd.Base)
}
