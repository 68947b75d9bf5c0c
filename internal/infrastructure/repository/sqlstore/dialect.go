package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects the SQL flavour and database/sql driver.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect maps a configured storage driver name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", name)
	}
}

func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite3"
}

// rebind rewrites ? placeholders into the dialect's positional form.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// schema returns the DDL for the entries table. seq preserves insertion order
// and is never reused.
func (d Dialect) schema() string {
	if d == Postgres {
		return `
CREATE TABLE IF NOT EXISTS catalog_entries (
	seq      BIGSERIAL PRIMARY KEY,
	id       TEXT NOT NULL UNIQUE,
	name     TEXT NOT NULL,
	producer TEXT NOT NULL,
	price    DOUBLE PRECISION NOT NULL CHECK (price >= 0),
	CONSTRAINT catalog_entries_name_producer_key UNIQUE (name, producer)
)`
	}
	return `
CREATE TABLE IF NOT EXISTS catalog_entries (
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	id       TEXT NOT NULL UNIQUE,
	name     TEXT NOT NULL,
	producer TEXT NOT NULL,
	price    REAL NOT NULL CHECK (price >= 0),
	UNIQUE (name, producer)
)`
}

type queries struct {
	listPage              string
	getByID               string
	findByNameAndProducer string
	insert                string
	replace               string
	remove                string
}

const entryColumns = `id, name, producer, price`

func (d Dialect) queries() queries {
	return queries{
		listPage:              d.rebind(`SELECT ` + entryColumns + ` FROM catalog_entries ORDER BY seq LIMIT ? OFFSET ?`),
		getByID:               d.rebind(`SELECT ` + entryColumns + ` FROM catalog_entries WHERE id = ?`),
		findByNameAndProducer: d.rebind(`SELECT ` + entryColumns + ` FROM catalog_entries WHERE name = ? AND producer = ? ORDER BY seq`),
		insert:                d.rebind(`INSERT INTO catalog_entries (id, name, producer, price) VALUES (?, ?, ?, ?)`),
		replace:               d.rebind(`UPDATE catalog_entries SET name = ?, producer = ?, price = ? WHERE id = ?`),
		remove:                d.rebind(`DELETE FROM catalog_entries WHERE id = ?`),
	}
}
