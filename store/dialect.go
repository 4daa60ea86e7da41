package store

import (
	"fmt"
	"strings"
	"time"
)

// Dialect holds the SQL fragments that differ between drivers. Queries are
// written with ? placeholders and the SQLite now literal; Q translates them.
type Dialect interface {
	Placeholder(n int) string
	Now() string
}

const sqliteNow = "datetime('now','localtime')"

type sqliteDialect struct{}

func (sqliteDialect) Placeholder(_ int) string { return "?" }
func (sqliteDialect) Now() string              { return sqliteNow }

type postgresDialect struct{}

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
func (postgresDialect) Now() string              { return "NOW()" }

// parseTime converts a scanned timestamp value to time.Time.
// SQLite hands back strings, Postgres hands back time.Time.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case []byte:
		return parseTime(string(t))
	case string:
		if t == "" {
			return time.Time{}
		}
		for _, layout := range []string{
			"2006-01-02 15:04:05",
			time.RFC3339,
			time.RFC3339Nano,
			"2006-01-02 15:04:05-07:00",
			"2006-01-02 15:04:05.999999-07:00",
		} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}

// parseTimePtr is like parseTime but returns nil for zero/missing timestamps.
func parseTimePtr(v any) *time.Time {
	t := parseTime(v)
	if t.IsZero() {
		return nil
	}
	return &t
}

// rebind rewrites ? placeholders into the dialect's numbered form.
func rebind(d Dialect, query string) string {
	n := 0
	var b strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString(d.Placeholder(n))
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}
