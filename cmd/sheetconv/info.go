package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/TsubasaBE/go-xlsx/ooxml"
	"github.com/TsubasaBE/go-xlsx/workbook"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE.xlsx...",
		Short: "Print the sheets, dimensions and table sizes of workbooks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := a.info(cmd.Context(), path); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			return nil
		},
	}
}

var visibilityNames = map[int]string{
	workbook.SheetVisible:    "visible",
	workbook.SheetHidden:     "hidden",
	workbook.SheetVeryHidden: "very hidden",
}

func (a *app) info(ctx context.Context, path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	wb, err := ooxml.ReadFile(ctx, path,
		ooxml.WithLogger(a.log.WithField("file", path)),
		ooxml.WithRecognizer(a.cfg.Recognizer()))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s: %s, %d sheets, %s shared strings, %s styles\n",
		path, humanize.Bytes(uint64(fi.Size())), wb.Len(),
		humanize.Comma(int64(wb.Strings().Len())), humanize.Comma(int64(wb.Styles().Len())))
	if p := wb.Properties; p.Creator != "" || !p.Modified.IsZero() {
		fmt.Fprintf(a.out, "  created by %q, modified %s\n", p.Creator, humanize.Time(p.Modified))
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  SHEET\tSTATE\tRANGE\tCELLS\tMERGES")
	for _, ws := range wb.Worksheets() {
		dim := "-"
		if r, ok := ws.Dimension(); ok {
			dim = r.String()
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%d\n",
			ws.Name(), visibilityNames[wb.SheetVisibility(ws.Name())], dim,
			humanize.Comma(int64(ws.CellCount())), len(ws.Merges()))
	}
	return tw.Flush()
}
