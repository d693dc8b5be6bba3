// Command sheetconv converts spreadsheets between .xlsx and .csv and prints
// summaries of workbooks.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/TsubasaBE/go-xlsx/internal/config"
)

// app holds state shared by all subcommands, filled in before any of them
// runs.
type app struct {
	configPath string
	verbose    bool

	cfg config.Config
	log *logrus.Logger
	out io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:           "sheetconv",
		Short:         "Convert spreadsheets between xlsx and csv",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = cfg.Logger(errOut, a.verbose)
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "TOML configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output")

	root.AddCommand(newConvertCmd(a), newInfoCmd(a))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "sheetconv:", err)
		stop()
		os.Exit(1)
	}
}
