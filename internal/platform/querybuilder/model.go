package querybuilder

import (
	"fmt"
	"reflect"
	"strings"
)

// InsertModel inserts one row built from the exported `db`-tagged fields of
// model. Fields tagged "-" or left untagged are skipped.
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	row, err := taggedRow(model)
	if err != nil {
		return "", nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	return InsertInto(table).
		Columns(row.columns...).
		Values(row.values...).
		Suffix(suffix).
		ToSQL()
}

type modelRow struct {
	columns []string
	values  []any
}

func taggedRow(model any) (modelRow, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return modelRow{}, fmt.Errorf("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return modelRow{}, fmt.Errorf("model must be struct, got %s", value.Kind())
	}

	var row modelRow
	for _, field := range reflect.VisibleFields(value.Type()) {
		if !field.IsExported() || field.Anonymous {
			continue
		}
		column, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		column = strings.TrimSpace(column)
		if column == "" || column == "-" {
			continue
		}
		row.columns = append(row.columns, column)
		row.values = append(row.values, value.FieldByIndex(field.Index).Interface())
	}
	if len(row.columns) == 0 {
		return modelRow{}, fmt.Errorf("model has no db columns")
	}
	return row, nil
}
