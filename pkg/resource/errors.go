package resource

import "fmt"

// ColumnType names the kind of value a store row column was expected to hold.
type ColumnType int

const (
	ColumnString ColumnType = iota
	ColumnJSON
	ColumnList
)

func (t ColumnType) String() string {
	switch t {
	case ColumnString:
		return "String"
	case ColumnJSON:
		return "Json"
	case ColumnList:
		return "List"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// ColumnCountError is returned when a result row is shorter than the decoder needs.
type ColumnCountError struct {
	Want int
	Got  int
}

func (e *ColumnCountError) Error() string {
	return fmt.Sprintf("not enough columns in result: need %d, got %d", e.Want, e.Got)
}

// ColumnTypeError is returned when the value at a column does not have the expected shape.
type ColumnTypeError struct {
	Column int
	Want   ColumnType
	Got    any
}

func (e *ColumnTypeError) Error() string {
	return fmt.Sprintf("unexpected type for column %d: want %s, got %T", e.Column, e.Want, e.Got)
}

func rowString(row []any, index int) (string, error) {
	s, ok := row[index].(string)
	if !ok {
		return "", &ColumnTypeError{Column: index, Want: ColumnString, Got: row[index]}
	}
	return s, nil
}

func rowList(row []any, index int) ([]any, error) {
	l, ok := row[index].([]any)
	if !ok {
		return nil, &ColumnTypeError{Column: index, Want: ColumnList, Got: row[index]}
	}
	return l, nil
}

func checkColumns(row []any, want int) error {
	if len(row) < want {
		return &ColumnCountError{Want: want, Got: len(row)}
	}
	return nil
}
