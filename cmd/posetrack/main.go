// Command posetrack records synthetic depth datasets and tracks object poses in them.
//
// Usage:
//
//	posetrack init   [flags]   write default config, camera and box mesh
//	posetrack record [flags]   simulate a moving object and store the dataset
//	posetrack track  [flags]   replay a stored dataset through the tracker
//	posetrack list   [flags]   list stored datasets
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/milosgajdos/go-posetrack/config"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

const usage = `usage: posetrack <init|record|track|list> [flags]`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	configPath := fs.String("config", "", "config file")
	dev := fs.Bool("dev", false, "development logging")
	config.RegisterFlags(fs)
	cmd.flags(fs)

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	c, err := config.Load(*configPath, fs)
	if err != nil {
		// init creates the config file
		if args[0] != "init" {
			return err
		}
		d := config.Default()
		c = &d
	}

	logger, err := newLogger(c.LogLevel, *dev)
	if err != nil {
		return err
	}
	defer logger.Sync() // nolint:errcheck

	return cmd.run(c, logger)
}

// newLogger creates production or development logger at level.
func newLogger(level string, dev bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zc := zap.NewProductionConfig()
	if dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = lvl

	return zc.Build()
}
