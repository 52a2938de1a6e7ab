package schemas

import (
	"embed"
	"fmt"
)

//go:embed *.schema.json
var schemaFS embed.FS

// Names of the embedded schemas.
const (
	EvaluationSchema = "evaluation.schema.json"
	SnapshotSchema   = "snapshot.schema.json"
)

// Get returns the raw text of an embedded schema.
func Get(name string) (string, error) {
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		return "", &SchemaLoadError{Schema: name, Message: "unknown schema", Cause: err}
	}
	return string(data), nil
}

// MustGet is Get that panics on unknown names.
func MustGet(name string) string {
	s, err := Get(name)
	if err != nil {
		panic(fmt.Sprintf("schemas: %v", err))
	}
	return s
}
