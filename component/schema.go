package component

import (
	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"

	"github.com/argus-labs/ecsquery/types"
)

var ErrSchemaMismatch = eris.New("component schema does not match stored schema")

func SerializeSchema(comp types.Component) ([]byte, error) {
	componentSchema := jsonschema.Reflect(comp)
	schema, err := componentSchema.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "component must be json serializable")
	}
	return schema, nil
}

// ValidateSchema checks the current schema of the component against one persisted by an earlier run.
func ValidateSchema(meta types.ComponentMetadata, stored []byte) error {
	current, err := meta.Schema()
	if err != nil {
		return err
	}
	patch, err := jsondiff.CompareJSON(current, stored)
	if err != nil {
		return eris.Wrap(err, "")
	}
	if patch.String() != "" {
		return eris.Wrapf(ErrSchemaMismatch, "component %q", meta.Name())
	}
	return nil
}
