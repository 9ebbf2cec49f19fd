package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wippyai/region-codec/codec"
	"github.com/wippyai/region-codec/region"
	"github.com/wippyai/region-codec/spool"
	"github.com/wippyai/region-codec/wasmmem"
)

var (
	demoOutput   string
	demoCount    int
	demoPerFrame int
	demoCompress bool
	demoWasm     bool
	demoPages    uint32
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Encode sample records into a spool file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if demoCount < 0 || demoPerFrame <= 0 {
			return fmt.Errorf("count must be >= 0 and per-frame > 0")
		}
		regions, err := encodeFrames(cmd.Context(), sampleEntries(demoCount))
		defer func() {
			for _, r := range regions {
				_ = r.Release()
			}
		}()
		if err != nil {
			return err
		}
		if err := spool.WriteFile(demoOutput, regions, spool.WithCompression(demoCompress)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records in %d frames to %s\n", demoCount, len(regions), demoOutput)
		return nil
	},
}

func init() {
	demoCmd.Flags().StringVarP(&demoOutput, "output", "o", "records.spool", "spool file to write")
	demoCmd.Flags().IntVarP(&demoCount, "count", "n", 16, "number of records")
	demoCmd.Flags().IntVar(&demoPerFrame, "per-frame", 8, "records per frame")
	demoCmd.Flags().BoolVar(&demoCompress, "compress", false, "snappy compress frames")
	demoCmd.Flags().BoolVar(&demoWasm, "wasm", false, "encode into wasm linear memory instead of the Go heap")
	demoCmd.Flags().Uint32Var(&demoPages, "pages", 16, "page cap for --wasm")
	rootCmd.AddCommand(demoCmd)
}

func newRegion(ctx context.Context) (*region.Region, error) {
	if !demoWasm {
		return region.New(), nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := wasmmem.New(ctx, &wasmmem.Config{MaxPages: demoPages})
	if err != nil {
		return nil, fmt.Errorf("wasm store: %w", err)
	}
	return region.NewWithStore(s), nil
}

func encodeFrames(ctx context.Context, entries []Entry) ([]*region.Region, error) {
	c, err := codec.New[Entry]()
	if err != nil {
		return nil, err
	}
	var out []*region.Region
	for start := 0; start < len(entries); start += demoPerFrame {
		end := min(start+demoPerFrame, len(entries))
		r, err := newRegion(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, r)
		if err := c.EncodeAll(r, entries[start:end]); err != nil {
			return out, fmt.Errorf("encode records %d-%d: %w", start, end-1, err)
		}
	}
	return out, nil
}
