package introspect

import (
	"fmt"
	"io"
	"strings"

	. "github.com/dave/jennifer/jen"
	"github.com/iancoleman/strcase"
)

const generatedHeader = "Code generated by ispybgen. DO NOT EDIT."

// Emit renders the described tables as a generated Go source file in
// the given package. One struct is emitted per table, fields in
// ordinal column order, each annotated with the column it scans.
func Emit(w io.Writer, packageName string, tables []Table) error {
	file := NewFile(packageName)
	file.HeaderComment(generatedHeader)

	for _, table := range tables {
		structName := exportedName(table.Name)
		file.Commentf("%s is a row of the %s table.", structName, table.Name)
		file.Type().Id(structName).StructFunc(func(g *Group) {
			for i, col := range table.Columns {
				if i > 0 {
					g.Line()
				}

				fieldName := exportedName(col.Name)
				fk, hasFK := table.ForeignKeys[col.Name]
				lead, tail := fieldComment(fieldName, col, fk, hasFK)
				g.Comment(lead)
				if tail != "" {
					g.Comment(tail)
				}

				path, typeName := goType(col)
				if path != "" {
					g.Id(fieldName).Qual(path, typeName)
				} else {
					g.Id(fieldName).Id(typeName)
				}
			}
		})
	}

	if err := file.Render(w); err != nil {
		return fmt.Errorf("render entities: %w", err)
	}

	return nil
}

// exportedName turns a column or table name into an exported Go
// identifier, keeping ID upper case the way the rest of the module
// spells it.
func exportedName(name string) string {
	n := strcase.ToCamel(name)
	if strings.HasSuffix(n, "Id") {
		n = strings.TrimSuffix(n, "Id") + "ID"
	}
	return n
}

// fieldComment builds the field doc comment. Foreign key references
// wrap onto a second comment line.
func fieldComment(fieldName string, col Column, fk ForeignKey, hasFK bool) (lead, tail string) {
	attrs := []string{describeType(col)}
	if col.Key == KeyPrimary {
		attrs = append(attrs, "primary key")
	}
	if col.Nullable {
		attrs = append(attrs, "nullable")
	}

	lead = fmt.Sprintf("%s is the %s column (%s", fieldName, col.Name, strings.Join(attrs, ", "))
	if hasFK {
		return lead + ",", fmt.Sprintf("references %s.%s).", fk.ReferencedTable, fk.ReferencedColumn)
	}
	return lead + ").", ""
}

func describeType(col Column) string {
	if strings.Contains(strings.ToLower(col.ColumnType), "unsigned") {
		return col.DataType + " unsigned"
	}
	return col.DataType
}
