package redis

import "fmt"

/*
	SCHEMA STORAGE:     COMPONENT_NAME -> JSON schema of the component struct.
	Hash set of component name to schema bytes, one hash per namespace.
*/

func (r *SchemaStorage) schemaStorageKey() string {
	if r.Namespace == "" {
		return "COMPONENT_NAME_TO_SCHEMA_DATA"
	}
	return fmt.Sprintf("%s:COMPONENT_NAME_TO_SCHEMA_DATA", r.Namespace)
}
