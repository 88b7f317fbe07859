package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

const (
	depthsKey  = "depths"
	itersKey   = "iters"
	formatKey  = "format"
	verboseKey = "verbose"
)

func main() {
	cmd := &cli.Command{
		Name:  "pathbench",
		Usage: "Benchmark property path tracking",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  depthsKey,
				Usage: "Comma separated number of intermediate links to benchmark",
				Value: "1,2,4,8,16",
			},
			&cli.UintFlag{
				Name:  itersKey,
				Usage: "Iterations per measurement",
				Value: 1000,
			},
			&cli.StringFlag{
				Name:  formatKey,
				Usage: "Output format: pretty, ascii or markdown",
				Value: formatPretty,
			},
			&cli.BoolFlag{
				Name:  verboseKey,
				Usage: "Log tracker rebinds",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	log := logrus.StandardLogger()
	if cmd.Bool(verboseKey) {
		log.SetLevel(logrus.DebugLevel)
	}

	depths, err := parseDepths(cmd.String(depthsKey))
	if err != nil {
		return err
	}
	iters := int(cmd.Uint(itersKey))
	if iters <= 0 {
		return fmt.Errorf("%s must be positive", itersKey)
	}
	format := cmd.String(formatKey)
	if !validFormat(format) {
		return fmt.Errorf("unknown format %q", format)
	}

	log.WithFields(logrus.Fields{
		"depths": depths,
		"iters":  iters,
	}).Info("pathbench started")

	var results []result
	for _, depth := range depths {
		if err := ctx.Err(); err != nil {
			return err
		}
		rs, err := benchmarkDepth(depth, iters, log)
		if err != nil {
			return fmt.Errorf("depth %d: %w", depth, err)
		}
		results = append(results, rs...)
	}

	if err := render(os.Stdout, format, results); err != nil {
		return err
	}
	log.WithField("elapsed", time.Since(start)).Info("pathbench finished")
	return nil
}
