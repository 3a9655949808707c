// Package cli contains the latticeplan command line application.
package cli

import (
	"io"
	"runtime"

	"github.com/urfave/cli/v2"
)

const (
	flagConfig        = "config"
	flagLogFile       = "log-file"
	flagDebug         = "debug"
	flagContext       = "context"
	flagStart         = "start"
	flagGoal          = "goal"
	flagObstacle      = "obstacle"
	flagMaxExpansions = "max-expansions"
	flagOut           = "out"
	flagDumpFormat    = "dump-format"
	flagParallel      = "parallel"
	flagTheta         = "theta"
	flagDebugSearch   = "debug-search"
)

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "latticeplan",
		Usage:           "plan, inspect and replay xytheta lattice searches",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:      flagConfig,
				Aliases:   []string{"c"},
				Usage:     "load configuration from `FILE`",
				TakesFile: true,
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.PathFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotated at 100MB",
			},
		},
		After: closeLogFile,
		Commands: []*cli.Command{
			{
				Name:  "plan",
				Usage: "plan from a start to goals, or replay a planner context dump",
				UsageText: "latticeplan plan --start x,y,theta --goal x,y,theta [--goal ...] [--obstacle minx,miny,maxx,maxy ...]\n" +
					"   latticeplan plan --context context_1.json",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:      flagContext,
						Usage:     "planner context dump to replay",
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:  flagStart,
						Usage: "start pose as x_mm,y_mm,theta_rad",
					},
					&cli.GenericFlag{
						Name:  flagGoal,
						Value: &poseList{},
						Usage: "goal pose as x_mm,y_mm,theta_rad; goal ids follow the flag order",
					},
					&cli.GenericFlag{
						Name:  flagObstacle,
						Value: &boxList{},
						Usage: "axis aligned obstacle as min_x,min_y,max_x,max_y in mm",
					},
					&cli.UintFlag{
						Name:  flagMaxExpansions,
						Usage: "expansion budget, 0 uses the configured one",
					},
					&cli.BoolFlag{
						Name:  flagDebugSearch,
						Usage: "log the replayed search at debug level, tagged with a debug_id",
					},
					&cli.PathFlag{
						Name:  flagOut,
						Usage: "write the result as json to `FILE`",
					},
				},
				Action: PlanAction,
			},
			{
				Name:  "gen-prims",
				Usage: "generate the motion primitive asset from the configured robot",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagDumpFormat,
						Usage: "write the fully computed dump format instead of the create format",
					},
					&cli.PathFlag{
						Name:  flagOut,
						Usage: "write the asset to `FILE` instead of stdout",
					},
				},
				Action: GenPrimsAction,
			},
			{
				Name:      "check-prims",
				Usage:     "load a motion primitive asset and print its primitives",
				ArgsUsage: "<asset.json>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagDumpFormat,
						Usage: "the asset is in the dump format",
					},
				},
				Action: CheckPrimsAction,
			},
			{
				Name:      "batch",
				Usage:     "replay many planner context dumps and summarize the searches",
				ArgsUsage: "<context.json>...",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  flagParallel,
						Usage: "number of searches to run at once",
						Value: runtime.NumCPU(),
					},
					&cli.UintFlag{
						Name:  flagMaxExpansions,
						Usage: "expansion budget, 0 uses the configured one",
					},
				},
				Action: BatchAction,
			},
			{
				Name:      "watch",
				Usage:     "replan every time a planner context dump changes",
				ArgsUsage: "<context.json>",
				Action:    WatchAction,
			},
			{
				Name:  "render",
				Usage: "draw a planner context and its plan to an image",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:      flagContext,
						Usage:     "planner context dump to draw",
						Required:  true,
						TakesFile: true,
					},
					&cli.PathFlag{
						Name:     flagOut,
						Usage:    "image `FILE`; the extension picks the format",
						Required: true,
					},
					&cli.IntFlag{
						Name:  flagTheta,
						Usage: "heading index whose obstacles are drawn",
					},
				},
				Action: RenderAction,
			},
			{
				Name:   "schema",
				Usage:  "print the json schema of the config file",
				Action: SchemaAction,
			},
		},
	}
}
