package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/wippyai/region-codec/codec"
	"github.com/wippyai/region-codec/spool"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	frameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB"))

	extentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

var inspectStats bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Decode and print every record in a spool file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := renderFile(args[0], inspectStats)
		fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectStats, "stats", false, "print codec counters after the records")
	rootCmd.AddCommand(inspectCmd)
}

// renderFile decodes every frame of path and renders the records. Output
// gathered before a failure is returned with the error.
func renderFile(path string, stats bool) (string, error) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("regionview"))
	b.WriteString(" ")
	b.WriteString(path)
	b.WriteString("\n\n")

	frames, err := spool.ReadFile(path)
	if err != nil {
		b.WriteString(errorStyle.Render(err.Error()))
		b.WriteString("\n")
		return b.String(), err
	}
	defer func() {
		for _, r := range frames {
			_ = r.Release()
		}
	}()

	reg := prometheus.NewRegistry()
	m, err := codec.NewMetrics(reg)
	if err != nil {
		return b.String(), err
	}
	c, err := codec.New[Entry](codec.WithMetrics(m))
	if err != nil {
		return b.String(), err
	}

	total := 0
	for fi, r := range frames {
		buf := r.Bytes()
		fmt.Fprintf(&b, "%s\n", frameStyle.Render(fmt.Sprintf("frame %d  %d bytes", fi, len(buf))))
		for off := 0; off < len(buf); total++ {
			n, err := c.Verify(buf[off:])
			if err != nil {
				return failAt(&b, fi, off, err)
			}
			v, _, err := c.Decode(buf[off:])
			if err != nil {
				return failAt(&b, fi, off, err)
			}
			fmt.Fprintf(&b, "  %s %s\n", extentStyle.Render(fmt.Sprintf("#%-4d @%-6d +%-4d", total, off, n)), formatEntry(v))
			off += n
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%d records in %d frames\n", total, len(frames))

	if stats {
		if err := writeStats(&b, reg); err != nil {
			return b.String(), err
		}
	}
	return b.String(), nil
}

func failAt(b *strings.Builder, frame, off int, err error) (string, error) {
	fmt.Fprintf(b, "  %s\n", errorStyle.Render(fmt.Sprintf("@%d: %v", off, err)))
	return b.String(), fmt.Errorf("frame %d offset %d: %w", frame, off, err)
}

func formatEntry(e *Entry) string {
	var parts []string
	parts = append(parts,
		fieldStyle.Render(e.Host),
		fmt.Sprintf("status=%d", e.Status),
		fmt.Sprintf("secure=%t", e.Secure),
		fmt.Sprintf("latency=%v", e.Latency))
	if e.Tags != nil {
		parts = append(parts, "tags=["+strings.Join(e.Tags, ",")+"]")
	}
	if e.Meta != nil {
		parts = append(parts, fmt.Sprintf("meta=%s/%.1f", e.Meta.Region, e.Meta.Weight))
	}
	switch e.Kind {
	case kindFailure:
		parts = append(parts, errorStyle.Render("error="+e.Error))
	case kindTransfer:
		parts = append(parts, fmt.Sprintf("bytes=%d", e.Bytes))
	}
	return strings.Join(parts, " ")
}

func writeStats(b *strings.Builder, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	b.WriteString("\n")
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			label := ""
			for _, lp := range metric.GetLabel() {
				label += fmt.Sprintf("{%s=%q}", lp.GetName(), lp.GetValue())
			}
			fmt.Fprintf(b, "%s%s %g\n", mf.GetName(), label, metric.GetCounter().GetValue())
		}
	}
	return nil
}
