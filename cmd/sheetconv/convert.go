package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TsubasaBE/go-xlsx/csv"
	"github.com/TsubasaBE/go-xlsx/ooxml"
	"github.com/TsubasaBE/go-xlsx/workbook"
	"github.com/TsubasaBE/go-xlsx/worksheet"
)

type convertOpts struct {
	to     string
	outDir string
	sheet  string
	jobs   int
}

func newConvertCmd(a *app) *cobra.Command {
	o := &convertOpts{}
	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Convert .xlsx files to .csv and .csv files to .xlsx",
		Long: `convert writes one output per input next to it, or into --out-dir.

An .xlsx input produces <name>.csv when it has a single sheet (or --sheet
selects one) and <name>-<sheet>.csv for each sheet otherwise.  A .csv input
produces <name>.xlsx with one sheet named after the file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.convertAll(cmd.Context(), o, args)
		},
	}
	cmd.Flags().StringVar(&o.to, "to", "", "target format: xlsx or csv (default: the other one)")
	cmd.Flags().StringVarP(&o.outDir, "out-dir", "o", "", "directory for output files")
	cmd.Flags().StringVar(&o.sheet, "sheet", "", "sheet to export from .xlsx inputs")
	cmd.Flags().IntVarP(&o.jobs, "jobs", "j", runtime.NumCPU(), "files converted concurrently")
	return cmd
}

func (a *app) convertAll(ctx context.Context, o *convertOpts, files []string) error {
	switch o.to {
	case "", "xlsx", "csv":
	default:
		return fmt.Errorf("unknown target format %q", o.to)
	}
	if o.outDir != "" {
		if err := os.MkdirAll(o.outDir, 0o755); err != nil {
			return err
		}
	}

	var mu sync.Mutex
	report := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(a.out, format, args...)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(o.jobs, 1))
	for _, f := range files {
		g.Go(func() error {
			outputs, err := a.convert(ctx, o, f)
			if err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			for _, out := range outputs {
				size := "?"
				if fi, err := os.Stat(out); err == nil {
					size = humanize.Bytes(uint64(fi.Size()))
				}
				report("%s -> %s (%s)\n", f, out, size)
			}
			return nil
		})
	}
	return g.Wait()
}

func (a *app) convert(ctx context.Context, o *convertOpts, path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	to := o.to
	if to == "" {
		to = map[string]string{".xlsx": "csv", ".csv": "xlsx"}[ext]
	}
	log := a.log.WithField("file", path)
	switch {
	case ext == ".xlsx" && to == "csv":
		return a.xlsxToCSV(ctx, o, path)
	case ext == ".csv" && to == "xlsx":
		return a.csvToXLSX(ctx, o, path)
	case ext == "."+to:
		log.Debug("already in target format")
		return nil, nil
	}
	return nil, fmt.Errorf("cannot convert %q files to %q", ext, to)
}

func (a *app) outPath(o *convertOpts, src, suffix string) string {
	dir := filepath.Dir(src)
	if o.outDir != "" {
		dir = o.outDir
	}
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(dir, base+suffix)
}

func (a *app) xlsxToCSV(ctx context.Context, o *convertOpts, path string) ([]string, error) {
	wb, err := ooxml.ReadFile(ctx, path,
		ooxml.WithLogger(a.log.WithField("file", path)),
		ooxml.WithRecognizer(a.cfg.Recognizer()))
	if err != nil {
		return nil, err
	}
	sheets := wb.Worksheets()
	if o.sheet != "" {
		ws, err := wb.Worksheet(o.sheet)
		if err != nil {
			return nil, err
		}
		sheets = []*worksheet.Worksheet{ws}
	}
	opts := append(a.cfg.CSVOptions(), csv.WithLogger(a.log.WithField("file", path)))
	var outputs []string
	for _, ws := range sheets {
		out := a.outPath(o, path, ".csv")
		if len(sheets) > 1 {
			out = a.outPath(o, path, "-"+ws.Name()+".csv")
		}
		if err := csv.WriteFile(ctx, out, ws, opts...); err != nil {
			return outputs, err
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func (a *app) csvToXLSX(ctx context.Context, o *convertOpts, path string) ([]string, error) {
	wb := workbook.New()
	wb.SetDateRecognizer(a.cfg.Recognizer())
	opts := append(a.cfg.CSVOptions(), csv.WithLogger(a.log.WithField("file", path)))
	if _, err := csv.ReadFile(ctx, path, wb, "", opts...); err != nil {
		return nil, err
	}
	out := a.outPath(o, path, ".xlsx")
	if err := ooxml.WriteFile(ctx, out, wb, ooxml.WithLogger(a.log.WithField("file", path))); err != nil {
		return nil, err
	}
	return []string{out}, nil
}
