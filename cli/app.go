// Package cli contains the touchctl command line actions for ADS7846 touch panels.
package cli

import (
	"io"
	"time"

	"github.com/urfave/cli/v2"
)

const (
	flagConfig      = "config"
	flagDebug       = "debug"
	flagLogFile     = "log-file"
	flagLogLevel    = "log-level"
	flagInterval    = "interval"
	flagCount       = "count"
	flagSimulate    = "simulate"
	flagCalibration = "calibration"
	flagPoints      = "points"
	flagOutput      = "output"

	defaultPollInterval = 20 * time.Millisecond
)

var app = &cli.App{
	Name:            "touchctl",
	Usage:           "inspect and calibrate ADS7846 resistive touch panels",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging, same as --log-level debug",
		},
		&cli.StringFlag{
			Name:  flagLogLevel,
			Value: "info",
			Usage: "minimum level to log: debug, info, warn or error",
		},
		&cli.PathFlag{
			Name:  flagLogFile,
			Usage: "also write logs to `FILE`, rotated at 10MB",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "watch",
			Usage:     "poll a panel and log touches",
			UsageText: "touchctl watch --config <file> [other options]",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:    flagConfig,
					Aliases: []string{"c"},
					Usage:   "load the panel configuration from `FILE`",
				},
				&cli.PathFlag{
					Name:  flagCalibration,
					Usage: "restore calibration coefficients written by 'touchctl calibrate' from `FILE`",
				},
				&cli.DurationFlag{
					Name:  flagInterval,
					Value: defaultPollInterval,
					Usage: "time between samples",
				},
				&cli.IntFlag{
					Name:  flagCount,
					Usage: "stop after this many samples, 0 to run until interrupted",
				},
				&cli.BoolFlag{
					Name:  flagSimulate,
					Usage: "sample an in-memory panel instead of the SPI bus",
				},
			},
			Action: WatchAction,
		},
		{
			Name:      "calibrate",
			Usage:     "compute a calibration matrix from recorded reference points",
			UsageText: "touchctl calibrate --points <file> [--output <file>]",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     flagPoints,
					Required: true,
					Usage:    "JSON list of {screen, panel} point pairs in `FILE`",
				},
				&cli.PathFlag{
					Name:  flagOutput,
					Usage: "write the resulting coefficients to `FILE`",
				},
			},
			Action: CalibrateAction,
		},
		{
			Name:   "schema",
			Usage:  "print the JSON schema of the panel configuration",
			Action: SchemaAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
