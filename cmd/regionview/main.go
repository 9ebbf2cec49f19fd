// Command regionview writes, inspects and browses spooled region records.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wippyai/region-codec/codec"
	"go.uber.org/zap"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "regionview",
	Short: "Inspect zero-copy region records",
	Long: `regionview works with spool files of encoded sample records.

  regionview demo -o logs.spool -n 100   # encode sample records
  regionview inspect logs.spool          # decode and print every record
  regionview view logs.spool             # browse the same output interactively
  regionview schema                      # WIT description of the record type`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			return nil
		}
		log, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		codec.SetLogger(log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
