package resource

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// KeyColumns is the number of columns forming the natural key of a resource row.
const KeyColumns = 4

// Resource identifies one cluster object. Namespace is nil for cluster-scoped objects.
type Resource struct {
	API       string         `json:"api"`
	Kind      string         `json:"kind"`
	Namespace *string        `json:"namespace"`
	Name      string         `json:"name"`
	Object    map[string]any `json:"obj,omitempty"`
}

// New builds a Resource, treating an empty namespace as cluster-scoped.
func New(api, kind, namespace, name string, obj map[string]any) Resource {
	return Resource{
		API:       api,
		Kind:      kind,
		Namespace: optionalString(namespace),
		Name:      name,
		Object:    obj,
	}
}

// FromUnstructured normalizes a listed object. api and kind come from discovery, not from the object.
func FromUnstructured(api, kind string, obj *unstructured.Unstructured) Resource {
	name := obj.GetName()
	if name == "" {
		name = obj.GetGenerateName()
	}
	return New(api, kind, obj.GetNamespace(), name, obj.Object)
}

// NamespaceOrEmpty returns the namespace, or "" for cluster-scoped resources.
func (r Resource) NamespaceOrEmpty() string {
	if r.Namespace == nil {
		return ""
	}
	return *r.Namespace
}

// KeyRow returns the natural key (api, kind, namespace, name).
func (r Resource) KeyRow() []any {
	return []any{r.API, r.Kind, r.NamespaceOrEmpty(), r.Name}
}

// FullRow returns the key columns followed by the payload. An absent payload is stored as an empty object.
func (r Resource) FullRow() []any {
	obj := r.Object
	if obj == nil {
		obj = map[string]any{}
	}
	return append(r.KeyRow(), obj)
}

// FromRow decodes a result row of at least four string columns.
// A fifth column, when present and a non-empty object, becomes the payload.
func FromRow(row []any) (Resource, error) {
	if err := checkColumns(row, KeyColumns); err != nil {
		return Resource{}, err
	}

	var cols [KeyColumns]string
	for i := range cols {
		s, err := rowString(row, i)
		if err != nil {
			return Resource{}, err
		}
		cols[i] = s
	}

	r := New(cols[0], cols[1], cols[2], cols[3], nil)
	if len(row) > KeyColumns {
		switch obj := row[KeyColumns].(type) {
		case nil:
		case map[string]any:
			if len(obj) > 0 {
				r.Object = obj
			}
		default:
			return Resource{}, &ColumnTypeError{Column: KeyColumns, Want: ColumnJSON, Got: obj}
		}
	}
	return r, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
