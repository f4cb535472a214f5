package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"crimestats/internal/config"
	"crimestats/internal/dataset"
	apperrors "crimestats/internal/errors"
)

// IfExists is the policy applied when the destination table already exists
type IfExists string

const (
	IfExistsFail    IfExists = "fail"
	IfExistsReplace IfExists = "replace"
	IfExistsAppend  IfExists = "append"
)

// Valid reports whether p is a known policy
func (p IfExists) Valid() bool {
	switch p {
	case IfExistsFail, IfExistsReplace, IfExistsAppend:
		return true
	}
	return false
}

// dialect captures what differs between the supported databases
type dialect struct {
	driver      string
	columnTypes map[dataset.ColumnType]string
	existsQuery string
	placeholder func(n int) string
	dateArg     func(t time.Time) interface{}
}

var (
	sqliteDialect = dialect{
		driver: "sqlite",
		columnTypes: map[dataset.ColumnType]string{
			dataset.TypeString:  "TEXT",
			dataset.TypeNumeric: "REAL",
			dataset.TypeDate:    "TIMESTAMP",
		},
		existsQuery: `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		placeholder: func(int) string { return "?" },
		dateArg: func(t time.Time) interface{} {
			return t.Format(dataset.DateTimeLayout)
		},
	}

	postgresDialect = dialect{
		driver: "postgres",
		columnTypes: map[dataset.ColumnType]string{
			dataset.TypeString:  "TEXT",
			dataset.TypeNumeric: "DOUBLE PRECISION",
			dataset.TypeDate:    "TIMESTAMP",
		},
		existsQuery: `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`,
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		dateArg:     func(t time.Time) interface{} { return t },
	}
)

// resolveDSN picks the dialect from the connection string. postgres:// URLs
// and key=value strings with a host go to PostgreSQL; anything else is a
// SQLite path, with an optional sqlite:// or sqlite:/// prefix.
func resolveDSN(dsn string) (dialect, string) {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"),
		strings.Contains(lower, "host="):
		return postgresDialect, dsn
	case strings.HasPrefix(lower, "sqlite:///"):
		return sqliteDialect, dsn[len("sqlite:///"):]
	case strings.HasPrefix(lower, "sqlite://"):
		return sqliteDialect, dsn[len("sqlite://"):]
	default:
		return sqliteDialect, dsn
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SaveDatabase writes table into tableName. With IfExistsFail an existing
// table is an error, IfExistsReplace drops and recreates it and
// IfExistsAppend inserts into it. Rows are inserted in one transaction.
func (l *Loader) SaveDatabase(ctx context.Context, table *dataset.Table, tableName, dsn string, policy IfExists) error {
	return l.write(ctx, config.FormatSQL, tableName, table.NumRows(), func(ctx context.Context) error {
		if !policy.Valid() {
			return apperrors.NewAppValidationError(fmt.Sprintf("unknown if_exists policy %q", policy))
		}
		if tableName == "" {
			return apperrors.NewAppValidationError("table name is empty")
		}

		d, source := resolveDSN(dsn)
		db, err := sql.Open(d.driver, source)
		if err != nil {
			return apperrors.NewStorageError("failed to open database", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return apperrors.NewStorageError("failed to connect to database", err).
				WithContext("driver", d.driver)
		}

		var count int
		if err := db.QueryRowContext(ctx, d.existsQuery, tableName).Scan(&count); err != nil {
			return apperrors.NewStorageError("failed to check table existence", err)
		}
		exists := count > 0

		if exists && policy == IfExistsFail {
			return apperrors.NewStorageError(fmt.Sprintf("table %s already exists", tableName), nil).
				WithContext("if_exists", string(policy))
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return apperrors.NewStorageError("failed to begin transaction", err)
		}
		defer tx.Rollback()

		if exists && policy == IfExistsReplace {
			if _, err := tx.ExecContext(ctx, "DROP TABLE "+quoteIdent(tableName)); err != nil {
				return apperrors.NewStorageError(fmt.Sprintf("failed to drop table %s", tableName), err)
			}
			exists = false
		}

		if !exists {
			if _, err := tx.ExecContext(ctx, createTableSQL(d, tableName, table)); err != nil {
				return apperrors.NewStorageError(fmt.Sprintf("failed to create table %s", tableName), err)
			}
		}

		if err := insertRows(ctx, tx, d, tableName, table); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return apperrors.NewStorageError("failed to commit transaction", err)
		}
		return nil
	})
}

func createTableSQL(d dialect, tableName string, table *dataset.Table) string {
	defs := make([]string, table.NumCols())
	for i := 0; i < table.NumCols(); i++ {
		col := table.ColumnAt(i)
		defs[i] = quoteIdent(col.Name) + " " + d.columnTypes[col.Type]
	}
	return "CREATE TABLE " + quoteIdent(tableName) + " (" + strings.Join(defs, ", ") + ")"
}

func insertRows(ctx context.Context, tx *sql.Tx, d dialect, tableName string, table *dataset.Table) error {
	cols := make([]string, table.NumCols())
	marks := make([]string, table.NumCols())
	for i, name := range table.ColumnNames() {
		cols[i] = quoteIdent(name)
		marks[i] = d.placeholder(i + 1)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+quoteIdent(tableName)+
		" ("+strings.Join(cols, ", ")+") VALUES ("+strings.Join(marks, ", ")+")")
	if err != nil {
		return apperrors.NewStorageError("failed to prepare insert", err)
	}
	defer stmt.Close()

	args := make([]interface{}, table.NumCols())
	for r := 0; r < table.NumRows(); r++ {
		for c := range args {
			args[c] = sqlArg(d, table.ColumnAt(c).Values[r])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to insert row %d", r), err)
		}
	}
	return nil
}

func sqlArg(d dialect, v dataset.Value) interface{} {
	if t, ok := v.Time(); ok {
		return d.dateArg(t)
	}
	return v.Interface()
}
