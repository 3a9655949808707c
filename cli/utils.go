package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/latticeplanner/config"
	"go.viam.com/latticeplanner/logging"
	"go.viam.com/latticeplanner/motionplan/xytheta"
	"go.viam.com/latticeplanner/spatialmath"
)

const (
	loggerName = "latticeplan"

	logFileMaxSizeMB  = 100
	logFileMaxBackups = 3
	logFileMetadata   = "logFile"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, "Warning: "+format+"\n", a...)
}

// loadConfig reads the file named by the config flag, or the defaults, and returns a logger that
// writes to the app's error writer, set up from the debug flag and the config's log patterns.
func loadConfig(c *cli.Context) (*config.Config, logging.Logger, error) {
	logger := logging.NewBlankLogger(loggerName)
	logger.SetLevel(logging.INFO)
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if path := c.Path(flagLogFile); path != "" {
		appender := logging.NewFileAppender(path, logFileMaxSizeMB, logFileMaxBackups)
		logger.AddAppender(appender)
		if c.App.Metadata == nil {
			c.App.Metadata = map[string]interface{}{}
		}
		c.App.Metadata[logFileMetadata] = appender
	}
	if c.Bool(flagDebug) {
		logger.SetLevel(logging.DEBUG)
	}

	cfg := config.Default()
	if path := c.Path(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path, logger); err != nil {
			return nil, nil, err
		}
	}
	if cfg.Debug {
		logger.SetLevel(logging.DEBUG)
	}

	if len(cfg.LogConfig) > 0 {
		registry := logging.NewRegistry()
		registry.GetOrRegister(loggerName, logger)
		if err := registry.UpdateConfig(cfg.LogConfig, logger); err != nil {
			return nil, nil, err
		}
	}
	return cfg, logger, nil
}

// closeLogFile closes the file appender opened by loadConfig, if any.
func closeLogFile(c *cli.Context) error {
	appender, ok := c.App.Metadata[logFileMetadata].(*logging.FileAppender)
	if !ok {
		return nil
	}
	delete(c.App.Metadata, logFileMetadata)
	return appender.Close()
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, errors.Errorf("%q: expected %d comma separated numbers", s, n)
	}
	out := make([]float64, n)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "%q", s)
		}
		out[i] = v
	}
	return out, nil
}

// parsePose parses "x_mm,y_mm,theta_rad".
func parsePose(s string) (xytheta.State, error) {
	v, err := parseFloats(s, 3)
	if err != nil {
		return xytheta.State{}, err
	}
	return xytheta.NewState(v[0], v[1], v[2]), nil
}

// parseBox parses "min_x,min_y,max_x,max_y".
func parseBox(s string) (spatialmath.ConvexPolygon, error) {
	v, err := parseFloats(s, 4)
	if err != nil {
		return spatialmath.ConvexPolygon{}, err
	}
	return spatialmath.NewAxisAlignedRectangle(v[0], v[1], v[2], v[3])
}

// poseList collects repeated --goal flags. Values contain commas, so a string slice flag would split them.
type poseList []xytheta.State

func (l *poseList) Set(s string) error {
	pose, err := parsePose(s)
	if err != nil {
		return err
	}
	*l = append(*l, pose)
	return nil
}

func (l *poseList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, 0, len(*l))
	for _, s := range *l {
		parts = append(parts, fmt.Sprintf("%g,%g,%g", s.XMM, s.YMM, s.Theta))
	}
	return strings.Join(parts, " ")
}

// boxList collects repeated --obstacle flags.
type boxList []spatialmath.ConvexPolygon

func (l *boxList) Set(s string) error {
	box, err := parseBox(s)
	if err != nil {
		return err
	}
	*l = append(*l, box)
	return nil
}

func (l *boxList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, 0, len(*l))
	for _, box := range *l {
		parts = append(parts, box.String())
	}
	return strings.Join(parts, " ")
}

// writeJSON writes v indented to `path`, or to w when path is empty.
func writeJSON(w io.Writer, path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		_, err = w.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
