/*
DESCRIPTION
  traysense locates the sensors placed in a gridded tray from a single
  camera image and prints the sensor found in each tray cell as JSON.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean)

  It is free software: you can redistribute it and/or modify them
  under the terms of the GNU General Public License as published by the
  Free Software Foundation, either version 3 of the License, or (at your
  option) any later version.

  It is distributed in the hope that it will be useful, but WITHOUT
  ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
  FITNESS FOR A PARTICULAR PURPOSE. See the GNU General Public License
  for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt.  If not, see http://www.gnu.org/licenses.
*/

// traysense reads a parameters file naming a tray image, a tray and the
// calibration and sensor patterns, runs detection and writes a JSON report
// of the tray to standard output. It is built with OpenCV by default; build
// with the nocv tag for a pure Go binary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/traysense/pi/config"
	"github.com/ausocean/traysense/pi/traysense"
	"github.com/ausocean/utils/logging"
)

// Logging configuration.
const (
	logPath      = "/var/log/traysense/traysense.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logSuppress  = false
)

func main() {
	var (
		paramsPath = flag.String("params", "parameters.yml", "Parameters file")
		traysPath  = flag.String("trays", "trays.yml", "Tray catalog file")
		outPath    = flag.String("out", "", "Write the rectified tray image to this file")
		plotDir    = flag.String("plots", "", "Write calibration and score plots to this directory")
		logFile    = flag.String("log", logPath, "Log file, empty to log to stderr only")
		debug      = flag.Bool("v", false, "Enable debug logging")
	)
	flag.Parse()

	var logVerbosity = logging.Info
	if *debug {
		logVerbosity = logging.Debug
	}
	var logOut io.Writer = os.Stderr
	if *logFile != "" {
		fileLog := &lumberjack.Logger{
			Filename:   *logFile,
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackup,
			MaxAge:     logMaxAge,
		}
		defer fileLog.Close()
		logOut = io.MultiWriter(fileLog, os.Stderr)
	}
	log := logging.New(logVerbosity, logOut, logSuppress)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *paramsPath, *traysPath, *outPath, *plotDir, log, os.Stdout); err != nil {
		log.Error("traysense failed", "error", err.Error())
		stop()
		os.Exit(1)
	}
}

// run detects the sensors in the tray image named by the parameters file and
// writes the report to w.
func run(ctx context.Context, paramsPath, traysPath, outPath, plotDir string, log logging.Logger, w io.Writer) error {
	params, err := config.LoadParameters(paramsPath)
	if err != nil {
		return fmt.Errorf("could not load parameters: %w", err)
	}
	log.Debug("parameters loaded", "path", paramsPath, "sensors", len(params.Sensors))

	b := newBackend()
	log.Info("initialising pipeline", "backend", backendName)
	p, err := traysense.NewPipeline(params, config.NewCatalog(traysPath), b, log)
	if err != nil {
		return fmt.Errorf("could not create pipeline: %w", err)
	}

	img, err := p.LoadImage()
	if err != nil {
		return err
	}
	log.Debug("image loaded", "width", img.Width(), "height", img.Height())

	res, err := p.Run(ctx, img)
	if err != nil {
		return err
	}

	if outPath != "" {
		if err := p.WriteRectified(outPath, res.Rectified); err != nil {
			return fmt.Errorf("could not write rectified image: %w", err)
		}
		log.Info("rectified image written", "path", outPath)
	}

	if plotDir != "" {
		if err := os.MkdirAll(plotDir, 0755); err != nil {
			return fmt.Errorf("could not create plot directory: %w", err)
		}
		if err := traysense.PlotCalibration(plotDir, res.Calibration, img.Size()); err != nil {
			return err
		}
		for _, g := range res.Scores {
			if err := traysense.PlotScores(plotDir, g); err != nil {
				return err
			}
		}
		log.Info("plots written", "dir", plotDir)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(traysense.NewReport(p.Grid(), res.Sensors)); err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}
	return nil
}
