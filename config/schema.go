package config

import (
	"github.com/invopop/jsonschema"
)

// Schema describes the robot settings file.
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{DoNotReference: true}
	s := r.Reflect(&Settings{})
	s.Title = "Robot settings"
	return s
}
