package main

import (
	"fmt"
	"io"
	"os"

	"github.com/san-kum/bridgesim/internal/analysis"
	"github.com/san-kum/bridgesim/internal/export"
	"github.com/san-kum/bridgesim/internal/storage"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
)

var (
	svgWidth  int
	svgHeight int
	phasePlot bool
	dpi       int
)

func exportCommands() []*cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run states to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export full run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export displacement or phase plot to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 400, "image height")
	exportSVGCmd.Flags().BoolVar(&phasePlot, "phase", false, "plot the phase portrait of --dof")
	exportSVGCmd.Flags().IntVar(&dof, "dof", 0, "degree of freedom for --phase")

	exportPNGCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "export displacement plot to PNG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportPNG,
	}
	exportPNGCmd.Flags().IntVar(&dpi, "dpi", 96, "resolution")

	cmds := []*cobra.Command{exportCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, exportPNGCmd}
	for _, c := range cmds[1:] {
		c.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")
	}
	return cmds
}

// output opens --output, or stdout when it is empty.
func output() (io.WriteCloser, error) {
	if outFile == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(outFile)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func writeOutput(fn func(io.Writer) error) error {
	w, err := output()
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if outFile != "" {
		fmt.Fprintf(os.Stderr, "exported to %s\n", outFile)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	return printJSON(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, ts, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return writeOutput(func(w io.Writer) error {
		return storage.WriteStatesCSV(w, ts)
	})
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, ts, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return writeOutput(func(w io.Writer) error {
		return storage.ExportJSON(w, *meta, ts)
	})
}

func exportSVG(cmd *cobra.Command, args []string) error {
	_, ts, err := loadRun(args[0])
	if err != nil {
		return err
	}

	svg := export.SeriesToSVG(ts, svgWidth, svgHeight)
	if phasePlot {
		portrait := analysis.PhasePortrait(ts, dof, 0)
		if portrait == nil {
			return fmt.Errorf("dof %d out of range", dof)
		}
		svg = export.PhaseToSVG(portrait, svgWidth, svgHeight)
	}
	return writeOutput(func(w io.Writer) error {
		_, err := io.WriteString(w, svg)
		return err
	})
}

func exportPNG(cmd *cobra.Command, args []string) error {
	meta, ts, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if outFile == "" {
		outFile = meta.ID + ".png"
	}
	p, err := export.SeriesPlot(ts, fmt.Sprintf("%s run %s", meta.Model, meta.ID))
	if err != nil {
		return err
	}
	return savePNG(p)
}

// savePNG writes p to --output at 8x4 inches.
func savePNG(p *plot.Plot) error {
	return writeOutput(func(w io.Writer) error {
		return export.WritePNG(w, p, 8, 4, max(dpi, 72))
	})
}
