package introspect

import "strings"

const sqlPackage = "database/sql"

// goType maps a described column to the Go type of its struct field,
// returned as an import path and a type name. Builtin types and
// []byte carry an empty path.
//
// Nullable columns map to the database/sql Null wrappers so a NULL
// survives scanning, except byte slice columns where a nil slice
// already carries the distinction.
func goType(col Column) (path, name string) {
	dataType := strings.ToLower(col.DataType)
	unsigned := strings.Contains(strings.ToLower(col.ColumnType), "unsigned")

	switch dataType {
	case "tinyint":
		// MySQL spells BOOLEAN as tinyint(1).
		if strings.HasPrefix(strings.ToLower(col.ColumnType), "tinyint(1)") {
			if col.Nullable {
				return sqlPackage, "NullBool"
			}
			return "", "bool"
		}
		return intType(col.Nullable, unsigned, 32)
	case "smallint", "mediumint", "int":
		return intType(col.Nullable, unsigned, 32)
	case "bigint":
		return intType(col.Nullable, unsigned, 64)
	case "decimal", "numeric", "float", "double", "real":
		if col.Nullable {
			return sqlPackage, "NullFloat64"
		}
		return "", "float64"
	case "char", "varchar", "tinytext", "text", "mediumtext", "longtext", "enum", "set":
		if col.Nullable {
			return sqlPackage, "NullString"
		}
		return "", "string"
	case "date", "datetime", "timestamp", "time":
		if col.Nullable {
			return sqlPackage, "NullTime"
		}
		return "time", "Time"
	default:
		// binary, blob, json, bit and anything unrecognized scan into
		// a byte slice, nil when the column is NULL.
		return "", "[]byte"
	}
}

func intType(nullable, unsigned bool, bits int) (path, name string) {
	if nullable {
		return sqlPackage, "NullInt64"
	}
	switch {
	case unsigned && bits == 64:
		return "", "uint64"
	case unsigned:
		return "", "uint32"
	case bits == 64:
		return "", "int64"
	default:
		return "", "int32"
	}
}
