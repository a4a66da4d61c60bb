package repository

import (
	"fmt"
	"time"

	"github.com/RealZimboGuy/gopherstate/internal/config"
)

// placeholder returns the correct bind variable for the given index based on DB type.
// Postgres uses $1, $2... while MySQL and SQLite use ?
func placeholder(i int) string {
	db := config.GetSystemSettingString(config.DATABASE_TYPE)
	if db == config.DATABASE_TYPE_POSTGRES {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// placeholders returns n comma separated bind variables starting at start.
func placeholders(start, n int) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ", "
		}
		s += placeholder(start + i)
	}
	return s
}

// formatDateInDatabase renders t in the representation each driver parses back losslessly
// to the microsecond. Postgres takes time.Time directly.
func formatDateInDatabase(t time.Time) interface{} {
	switch config.GetSystemSettingString(config.DATABASE_TYPE) {
	case config.DATABASE_TYPE_SQLLITE, config.DATABASE_TYPE_MYSQL:
		return t.UTC().Format("2006-01-02 15:04:05.000000")
	default:
		return t.UTC()
	}
}
