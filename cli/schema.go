package cli

import (
	"github.com/invopop/jsonschema"
	"github.com/urfave/cli/v2"

	"go.viam.com/latticeplanner/config"
)

// SchemaAction prints the json schema of the config file.
// Definitions are inlined since config.Config and navigation.Config share a type name.
func SchemaAction(c *cli.Context) error {
	r := &jsonschema.Reflector{DoNotReference: true, RequiredFromJSONSchemaTags: true}
	return writeJSON(c.App.Writer, "", r.Reflect(&config.Config{}))
}
