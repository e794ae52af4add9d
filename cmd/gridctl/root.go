package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gridlink.unit/gridlink/internal/config"
	"gridlink.unit/gridlink/internal/grid"
	"gridlink.unit/gridlink/internal/logger"
	"gridlink.unit/gridlink/internal/unit"
)

const callTimeout = 30 * time.Second

// app carries state shared by subcommands.
type app struct {
	cfgPath string
	verbose bool
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "gridctl",
		Short:        "Command line client for the grid directory",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", config.DefaultFile, "Path to the gridlink configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log directory calls to stderr")

	root.AddCommand(
		a.genkeyCommand(),
		a.identityCommand(),
		a.unitsCommand(),
		a.countriesCommand(),
		a.unitCommand(),
		a.enrollCommand(),
		a.inboxCommand(),
		a.readCommand(),
		a.markCommand(),
		a.sendCommand(),
		a.reportCommand(),
		a.verifyCommand(),
	)
	return root
}

func (a *app) config() (*config.Config, error) {
	return config.Load(a.cfgPath)
}

func (a *app) logger(cmd *cobra.Command) (*logrus.Entry, error) {
	level := "warning"
	if a.verbose {
		level = "debug"
	}
	l, err := logger.NewWithOutput(level, nil, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return logrus.NewEntry(l), nil
}

// client builds an unauthenticated client from the configuration.
func (a *app) client(cmd *cobra.Command) (*grid.Client, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	log, err := a.logger(cmd)
	if err != nil {
		return nil, err
	}
	return unit.Open(cfg, log, nil)
}

// session builds a client and enrolls it.
func (a *app) session(cmd *cobra.Command) (*grid.Client, error) {
	c, err := a.client(cmd)
	if err != nil {
		return nil, err
	}
	ctx, cancel := callContext(cmd)
	defer cancel()
	if _, err := c.Enroll(ctx, unit.EnrollmentData()); err != nil {
		return nil, err
	}
	return c, nil
}

func callContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, callTimeout)
}

func printJSON(w io.Writer, v any) error {
	if raw, ok := v.(json.RawMessage); ok && len(raw) == 0 {
		v = struct{}{}
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
