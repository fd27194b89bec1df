package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gnana997/detachr/pkg/binding"
	"github.com/gnana997/detachr/pkg/detach"
	"github.com/gnana997/detachr/pkg/scanner"
	"github.com/gnana997/detachr/pkg/session"
)

// renderer prints command results as styled tables or as the JSON
// payloads a session client receives.
type renderer struct {
	out  io.Writer
	mode string

	title  lipgloss.Style
	header lipgloss.Style
	dim    lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	border lipgloss.Style
}

func newRenderer(out io.Writer, mode string) *renderer {
	r := lipgloss.NewRenderer(out)
	return &renderer{
		out:    out,
		mode:   mode,
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		header: r.NewStyle().Bold(true).Padding(0, 1),
		dim:    r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		ok:     r.NewStyle().Foreground(lipgloss.Color("#10B981")),
		warn:   r.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		border: r.NewStyle().Foreground(lipgloss.Color("#374151")),
	}
}

func (r *renderer) json(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Scan prints a scan result.
func (r *renderer) Scan(res *scanner.ScanResult) error {
	if r.mode == OutputJSON {
		return r.json(session.ScanResults{
			Bindings:    res.Bindings,
			Counts:      res.Counts,
			NoSelection: res.NoSelection,
		})
	}

	heading := "Variables in selection"
	if res.NoSelection {
		heading = "Variables on page (nothing selected)"
	}
	fmt.Fprintln(r.out, r.title.Render(heading))
	if len(res.Bindings) == 0 {
		fmt.Fprintln(r.out, r.dim.Render("No variable bindings found."))
		return nil
	}

	rows := make([][]string, 0, len(res.Bindings))
	for _, b := range res.Bindings {
		rows = append(rows, bindingRow(b))
	}
	fmt.Fprintln(r.out, r.table([]string{"Node", "Property", "Type", "Variable", "Value"}, rows))
	fmt.Fprintln(r.out, r.counts(len(res.Bindings), "bindings", res.Counts))
	return nil
}

// Detach prints a detach result.
func (r *renderer) Detach(res *detach.Result) error {
	if r.mode == OutputJSON {
		return r.json(res)
	}

	heading := "Detached"
	if res.DryRun {
		heading = "Would detach (dry run)"
	}
	fmt.Fprintln(r.out, r.title.Render(heading))
	if len(res.Detached) == 0 {
		fmt.Fprintln(r.out, r.dim.Render("Nothing detached."))
	} else {
		rows := make([][]string, 0, len(res.Detached))
		for _, rec := range res.Detached {
			row := bindingRow(rec.VariableBinding)
			if rec.Outcome == detach.AppliedWithoutUnbind {
				row[4] += " " + r.warn.Render("(binding kept)")
			}
			rows = append(rows, row)
		}
		fmt.Fprintln(r.out, r.table([]string{"Node", "Property", "Type", "Variable", "Value"}, rows))
	}

	if len(res.Skipped) > 0 {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, r.warn.Render(fmt.Sprintf("Skipped %d", len(res.Skipped))))
		rows := make([][]string, 0, len(res.Skipped))
		for _, rec := range res.Skipped {
			rows = append(rows, []string{rec.NodeName, rec.Property.String(), rec.Reason})
		}
		fmt.Fprintln(r.out, r.table([]string{"Node", "Property", "Reason"}, rows))
	}
	fmt.Fprintln(r.out, r.counts(len(res.Detached), "detached", res.Counts))
	return nil
}

func bindingRow(b binding.VariableBinding) []string {
	return []string{b.NodeName, b.Property.String(), b.VariableType.String(), b.CurrentVariable, b.ResolvedValue.String()}
}

func (r *renderer) table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		String()
}

// counts renders "N label  color 1 · text 0 · number 2 · other 0".
func (r *renderer) counts(n int, label string, c binding.Counts) string {
	parts := make([]string, 0, binding.NumTypes)
	for _, t := range binding.Types {
		parts = append(parts, fmt.Sprintf("%s %d", t, c[t]))
	}
	return r.ok.Render(fmt.Sprintf("%d %s", n, label)) + "  " + r.dim.Render(strings.Join(parts, " · "))
}
