package resource

import "fmt"

const edgeColumns = 3

// Edge is a labelled relationship between two resources. Edges only exist as query results.
type Edge struct {
	From  Resource `json:"from"`
	To    Resource `json:"to"`
	Label string   `json:"label"`
}

// EdgeFromRow decodes a row of the form [[from...], [to...], label].
func EdgeFromRow(row []any) (Edge, error) {
	if err := checkColumns(row, edgeColumns); err != nil {
		return Edge{}, err
	}

	from, err := nestedResource(row, 0)
	if err != nil {
		return Edge{}, err
	}
	to, err := nestedResource(row, 1)
	if err != nil {
		return Edge{}, err
	}
	label, err := rowString(row, 2)
	if err != nil {
		return Edge{}, err
	}

	return Edge{From: from, To: to, Label: label}, nil
}

func nestedResource(row []any, index int) (Resource, error) {
	l, err := rowList(row, index)
	if err != nil {
		return Resource{}, err
	}
	r, err := FromRow(l)
	if err != nil {
		return Resource{}, fmt.Errorf("column %d: %w", index, err)
	}
	return r, nil
}
