package driver

import (
	"fmt"
	"strings"
	"time"

	"github.com/SimonWaldherr/dataapi/internal/engine"
)

// Dialect is what differs between database engines: the type catalog, the
// canonical time layouts and the select-database directive.
type Dialect interface {
	engine.Catalog
	Name() string
	// UseDatabase returns the directive selecting name for the rest of the
	// session. An empty directive means nothing needs to run.
	UseDatabase(name string) (string, error)
}

// MySQL is the MySQL and MariaDB dialect.
type MySQL struct{}

// mysqlTypes is keyed by the names go-sql-driver/mysql reports. BOOL and
// BOOLEAN columns are TINYINT(1) and come back as TINYINT, the display width
// is not exposed, so they marshal as longs.
var mysqlTypes = map[string]engine.Category{
	"VARCHAR":    engine.CategoryText,
	"CHAR":       engine.CategoryText,
	"TEXT":       engine.CategoryText,
	"LONGTEXT":   engine.CategoryText,
	"MEDIUMTEXT": engine.CategoryText,
	"TINYTEXT":   engine.CategoryText,

	"TINYINT":   engine.CategoryInteger,
	"SMALLINT":  engine.CategoryInteger,
	"MEDIUMINT": engine.CategoryInteger,
	"INT":       engine.CategoryInteger,
	"BIGINT":    engine.CategoryInteger,

	"FLOAT":   engine.CategoryFloat,
	"DOUBLE":  engine.CategoryFloat,
	"DECIMAL": engine.CategoryFloat,
	"NUMERIC": engine.CategoryFloat,

	"DATE":      engine.CategoryTemporal,
	"DATETIME":  engine.CategoryTemporal,
	"TIMESTAMP": engine.CategoryTemporal,
	"TIME":      engine.CategoryTemporal,
	"YEAR":      engine.CategoryTemporal,

	"VARBINARY":  engine.CategoryBinary,
	"BINARY":     engine.CategoryBinary,
	"BLOB":       engine.CategoryBinary,
	"LONGBLOB":   engine.CategoryBinary,
	"MEDIUMBLOB": engine.CategoryBinary,
	"TINYBLOB":   engine.CategoryBinary,
}

func (MySQL) Name() string { return "mysql" }

// Category maps a MySQL column type name. Unsigned integer types are
// reported with an "UNSIGNED " prefix.
func (MySQL) Category(typeName string) engine.Category {
	name := strings.ToUpper(strings.TrimSpace(typeName))
	if base, ok := strings.CutPrefix(name, "UNSIGNED "); ok {
		if c := mysqlTypes[base]; c == engine.CategoryInteger {
			return c
		}
		return engine.CategoryUnknown
	}
	return mysqlTypes[name]
}

func (MySQL) FormatTime(t time.Time, typeName string) string {
	switch strings.ToUpper(typeName) {
	case "DATE":
		return t.Format(time.DateOnly)
	case "TIME":
		return t.Format(time.TimeOnly)
	case "YEAR":
		return t.Format("2006")
	default:
		return t.Format(time.DateTime)
	}
}

// UseDatabase quotes name as an identifier, doubling embedded backticks.
func (MySQL) UseDatabase(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	return "USE `" + strings.ReplaceAll(name, "`", "``") + "`", nil
}

// SQLite is the SQLite dialect. Declared column types are free text in
// SQLite, so names that are not known exactly fall back to its type
// affinity rules.
type SQLite struct{}

var sqliteTypes = map[string]engine.Category{
	"TEXT":      engine.CategoryText,
	"VARCHAR":   engine.CategoryText,
	"CHAR":      engine.CategoryText,
	"CLOB":      engine.CategoryText,
	"BOOLEAN":   engine.CategoryBoolean,
	"BOOL":      engine.CategoryBoolean,
	"INTEGER":   engine.CategoryInteger,
	"INT":       engine.CategoryInteger,
	"BIGINT":    engine.CategoryInteger,
	"REAL":      engine.CategoryFloat,
	"DOUBLE":    engine.CategoryFloat,
	"FLOAT":     engine.CategoryFloat,
	"NUMERIC":   engine.CategoryFloat,
	"DECIMAL":   engine.CategoryFloat,
	"DATE":      engine.CategoryTemporal,
	"DATETIME":  engine.CategoryTemporal,
	"TIMESTAMP": engine.CategoryTemporal,
	"TIME":      engine.CategoryTemporal,
	"BLOB":      engine.CategoryBinary,
}

func (SQLite) Name() string { return "sqlite" }

// Category maps a declared SQLite type. Expressions and type names outside
// the affinity rules are left to the value's own representation.
func (SQLite) Category(typeName string) engine.Category {
	name := strings.ToUpper(strings.TrimSpace(typeName))
	if name == "" {
		return engine.CategoryUnknown
	}
	if c, ok := sqliteTypes[name]; ok {
		return c
	}
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
		if c, ok := sqliteTypes[name]; ok {
			return c
		}
	}
	switch {
	case strings.Contains(name, "INT"):
		return engine.CategoryInteger
	case strings.Contains(name, "CHAR"), strings.Contains(name, "CLOB"), strings.Contains(name, "TEXT"):
		return engine.CategoryText
	case strings.Contains(name, "BLOB"):
		return engine.CategoryBinary
	case strings.Contains(name, "REAL"), strings.Contains(name, "FLOA"), strings.Contains(name, "DOUB"):
		return engine.CategoryFloat
	default:
		// JSON, UUID and other custom names hold whatever was stored.
		return engine.CategoryUnknown
	}
}

func (SQLite) FormatTime(t time.Time, typeName string) string {
	switch strings.ToUpper(typeName) {
	case "DATE":
		return t.Format(time.DateOnly)
	case "TIME":
		return t.Format(time.TimeOnly)
	default:
		return t.Format(time.DateTime)
	}
}

// UseDatabase accepts only the main database; SQLite has no session-wide
// database switch.
func (SQLite) UseDatabase(name string) (string, error) {
	if name == "" || strings.EqualFold(name, "main") {
		return "", nil
	}
	return "", fmt.Errorf("sqlite cannot select database %q", name)
}
