package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/olekukonko/tablewriter"
	"github.com/valyala/quicktemplate"
)

const (
	formatPretty   = "pretty"
	formatASCII    = "ascii"
	formatMarkdown = "markdown"
)

var header = []string{"Benchmark", "Depth", "Iterations", "Avg", "Min", "P75", "P99", "Max", "Ops/s"}

func validFormat(format string) bool {
	switch format {
	case formatPretty, formatASCII, formatMarkdown:
		return true
	}
	return false
}

func rows(results []result) [][]string {
	out := make([][]string, 0, len(results))
	for _, r := range results {
		t := r.metrics.Time
		out = append(out, []string{
			r.name,
			fmt.Sprint(r.depth),
			humanize.Comma(int64(r.iters)),
			t.Avg.String(),
			t.Min.String(),
			t.P75.String(),
			t.P99.String(),
			t.Max.String(),
			opsPerSecond(t.Avg),
		})
	}
	return out
}

func opsPerSecond(avg time.Duration) string {
	if avg <= 0 {
		return "-"
	}
	return humanize.Comma(int64(time.Second / avg))
}

func render(w io.Writer, format string, results []result) error {
	data := rows(results)
	switch format {
	case formatPretty:
		renderPretty(w, data)
	case formatASCII:
		renderASCII(w, data)
	case formatMarkdown:
		renderMarkdown(w, data)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

func renderPretty(w io.Writer, data [][]string) {
	t := table.NewWriter()
	t.SetTitle("Property path tracking")
	t.SetOutputMirror(w)

	hr := make(table.Row, len(header))
	for i, h := range header {
		hr[i] = h
	}
	t.AppendHeader(hr)
	for _, d := range data {
		row := make(table.Row, len(d))
		for i, c := range d {
			row[i] = c
		}
		t.AppendRow(row)
	}
	t.Render()
}

func renderASCII(w io.Writer, data [][]string) {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.AppendBulk(data)
	t.Render()
}

func renderMarkdown(w io.Writer, data [][]string) {
	qw := quicktemplate.AcquireWriter(w)
	defer quicktemplate.ReleaseWriter(qw)
	out := qw.N()

	line := func(cells []string) {
		out.S("| ")
		out.S(strings.Join(cells, " | "))
		out.S(" |\n")
	}
	line(header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	line(sep)
	for _, d := range data {
		line(d)
	}
	out.S("\n")
	out.D(len(data))
	out.S(" measurements\n")
}
