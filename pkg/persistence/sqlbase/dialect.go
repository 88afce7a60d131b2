package sqlbase

import (
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the text form of timestamps in databases without a native
// timestamp type. It is fixed width so text order matches time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Dialect holds what differs between the supported SQL databases. Queries are
// written with ? placeholders and rebound per dialect.
type Dialect struct {
	Name string
	// NumberedParams selects $1, $2 placeholders.
	NumberedParams bool
	// LockRow is appended to a SELECT that precedes an UPDATE of the same row
	// within a transaction.
	LockRow string
	// TextTime stores timestamps as TimeLayout strings.
	TextTime bool
}

var (
	Postgres = Dialect{Name: "postgres", NumberedParams: true, LockRow: " FOR UPDATE"}
	SQLite   = Dialect{Name: "sqlite", TextTime: true}
)

func (d Dialect) Rebind(query string) string {
	if !d.NumberedParams {
		return query
	}

	var b strings.Builder

	b.Grow(len(query) + 8)

	n := 0

	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)

			continue
		}

		n++

		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}

	return b.String()
}

// Time converts t to the value bound for a timestamp column.
func (d Dialect) Time(t time.Time) any {
	if d.TextTime {
		return t.UTC().Format(TimeLayout)
	}

	return t.UTC()
}

func (d Dialect) NullTime(t *time.Time) any {
	if t == nil {
		return nil
	}

	return d.Time(*t)
}
