package writeretry

import (
	"errors"
	"regexp"
	"strings"
)

const kindSchemaCache = "schema_cache"

// errorKinder is implemented by store errors that carry an explicit
// classification. When present it is authoritative; the substring heuristics
// below only run for untyped errors from the driver.
type errorKinder interface {
	ErrorKind() string
}

// columnNamer is implemented by errors that identify the column the schema
// cache could not find.
type columnNamer interface {
	MissingColumn() string
}

var missingColumnPattern = regexp.MustCompile(`(?i)(?:could not find the|no such column:?)\s*['"]?([A-Za-z0-9_]+)['"]?`)

// IsSchemaCacheError reports whether err is the transient stale-schema-cache
// failure the retry protocol recovers from.
func IsSchemaCacheError(err error) bool {
	if err == nil {
		return false
	}
	var kinder errorKinder
	if errors.As(err, &kinder) {
		return kinder.ErrorKind() == kindSchemaCache
	}

	message := strings.ToLower(err.Error())
	if strings.Contains(message, "schema cache") {
		return true
	}
	if strings.Contains(message, "could not find the") && strings.Contains(message, "column") {
		return true
	}
	return strings.Contains(message, "no such column")
}

// MissingColumn extracts the column name a schema-cache error complains
// about, or "" when the error does not identify one.
func MissingColumn(err error) string {
	if err == nil {
		return ""
	}
	var namer columnNamer
	if errors.As(err, &namer) {
		return namer.MissingColumn()
	}
	if match := missingColumnPattern.FindStringSubmatch(err.Error()); match != nil {
		return match[1]
	}
	return ""
}
