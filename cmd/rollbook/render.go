package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/denismitr/rollbook"
)

func renderTable(w io.Writer, records []rollbook.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No records.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLL\tNAME\tSECTION\tMARKS\tGRADE")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\n", r.Roll, r.Name, r.Section, r.Marks, r.Grade)
	}

	return tw.Flush()
}

func renderStats(w io.Writer, st rollbook.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Records:\t%d\n", st.Count)
	fmt.Fprintf(tw, "Average:\t%.2f\n", st.Average)
	fmt.Fprintf(tw, "Highest:\t%.2f\n", st.Max)
	fmt.Fprintf(tw, "Lowest:\t%.2f\n", st.Min)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "Grade distribution:")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, g := range rollbook.Grades {
		label := g.String()
		if g == rollbook.GradeF {
			label = "F/others"
		}
		fmt.Fprintf(tw, "  %s\t%d\n", label, st.Histogram[g])
	}

	return tw.Flush()
}
