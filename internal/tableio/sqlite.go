package tableio

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/aquanet-data/telemetry.fill/internal/meter"
	_ "modernc.org/sqlite"
)

// DefaultSQLiteTable is the table read from and written to when loading or
// saving a SQLite database, matching the upstream telemetry export schema.
const DefaultSQLiteTable = "readings"

// LoadSQLite reads a reading table from a SQLite database file.
func LoadSQLite(path, table string) (*meter.Table, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tableio: open %s: %w", path, err)
	}
	defer db.Close()

	cols := header()
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(quoteAll(cols), ", "), quoteIdent(table))
	rows, err := db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("tableio: query %s: %w", table, err)
	}
	defer rows.Close()

	sch, err := discoverSchema(cols)
	if err != nil {
		return nil, err
	}

	t := &meter.Table{}
	record := make([]string, len(cols))
	scan := make([]any, len(cols))
	raw := make([]sql.NullString, len(cols))
	for i := range raw {
		scan[i] = &raw[i]
	}
	line := 1
	for rows.Next() {
		line++
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("tableio: scan row %d: %w", line, err)
		}
		for i, ns := range raw {
			if ns.Valid {
				record[i] = ns.String
			} else {
				record[i] = ""
			}
		}
		row, err := sch.parseRow(record, line)
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tableio: iterate %s: %w", table, err)
	}
	return t, nil
}

// SaveSQLite writes a reading table into a SQLite database file, replacing
// the target table. Missing values are stored as NULL.
func SaveSQLite(path, table string, t *meter.Table) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("tableio: open %s: %w", path, err)
	}
	defer db.Close()

	cols := header()
	defs := make([]string, len(cols))
	defs[0] = quoteIdent(cols[0]) + " TEXT NOT NULL"
	defs[1] = quoteIdent(cols[1]) + " TEXT NOT NULL"
	for i := 2; i < len(cols); i++ {
		defs[i] = quoteIdent(cols[i]) + " REAL"
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("tableio: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table))); err != nil {
		return fmt.Errorf("tableio: drop %s: %w", table, err)
	}
	if _, err := tx.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("tableio: create %s: %w", table, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoteAll(cols), ", "), placeholders))
	if err != nil {
		return fmt.Errorf("tableio: prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	for _, row := range t.Rows {
		args[0] = row.MeterID
		args[1] = row.Date.Format(dateLayout)
		for h, v := range row.Values {
			if meter.Missing(v) {
				args[2+h] = nil
			} else {
				args[2+h] = v
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("tableio: insert row for meter %s: %w", row.MeterID, err)
		}
	}
	return tx.Commit()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quoteIdent(n)
	}
	return out
}
