package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/latticeplanner/motionplan/primgen"
	"go.viam.com/latticeplanner/motionplan/xytheta"
)

// GenPrimsAction writes the primitive asset generated from the configured parameters.
func GenPrimsAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	params := cfg.Primitives.Generate
	asset, err := primgen.Generate(params)
	if err != nil {
		return err
	}
	logger.Debugw("generated primitives", "angles", asset.NumAngles, "actions", len(asset.Actions))
	if !c.Bool(flagDumpFormat) {
		return writeJSON(c.App.Writer, c.Path(flagOut), asset)
	}

	space, err := xytheta.NewActionSpaceFromCreate(asset)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, c.Path(flagOut), space.Dump())
}

// CheckPrimsAction loads an asset and prints each primitive's end offset and cost.
func CheckPrimsAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one asset file")
	}
	space, err := xytheta.ReadMotionPrims(c.Args().First(), c.Bool(flagDumpFormat))
	if err != nil {
		return errors.Wrap(err, "invalid motion primitives")
	}

	w := c.App.Writer
	printf(w, "resolution %.1fmm, %d angles, %d actions", space.ResolutionMM(), space.NumAngles(), space.NumActions())
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Action", "Extra cost", "Reverse"})
	for _, at := range space.ActionTypes() {
		t.AppendRow(table.Row{at.Index, at.Name, fmt.Sprintf("%.2f", at.ExtraCostFactor), at.Reverse})
	}
	printf(w, "%s", t.Render())
	for theta := 0; theta < space.NumAngles(); theta++ {
		printf(w, "angle %d (%.4f rad)", theta, space.LookupTheta(xytheta.GraphTheta(theta)))
		for _, prim := range space.Primitives(xytheta.GraphTheta(theta)) {
			name := ""
			if at, ok := space.ActionType(prim.ID); ok {
				name = at.Name
			}
			printf(w, "\t%-20s -> %v cost %.4f, %d samples", name, prim.EndStateOffset, prim.Cost, len(prim.IntermediatePositions))
		}
	}
	return nil
}
