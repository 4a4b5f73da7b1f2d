package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/bryanwahyu/homeready/internal/application/audits"
	"github.com/bryanwahyu/homeready/internal/domain/assessment"
	"github.com/bryanwahyu/homeready/internal/domain/catalog"
	"github.com/bryanwahyu/homeready/internal/domain/report"
)

// Define colored output functions
var (
	success    = color.New(color.FgGreen, color.Bold).SprintfFunc()
	info       = color.New(color.FgCyan, color.Bold).SprintfFunc()
	warning    = color.New(color.FgYellow, color.Bold).SprintfFunc()
	errorColor = color.New(color.FgRed, color.Bold).SprintfFunc()

	criticalColor = color.New(color.BgRed, color.FgWhite, color.Bold).SprintfFunc()
	highColor     = color.New(color.FgRed, color.Bold).SprintfFunc()
	mediumColor   = color.New(color.FgYellow, color.Bold).SprintfFunc()
	lowColor      = color.New(color.FgBlue, color.Bold).SprintfFunc()
)

const (
	check = "✅"
	cross = "❌"
	chart = "📊"
	house = "🏠"
)

func levelColor(l assessment.Level) func(string, ...interface{}) string {
	switch l {
	case assessment.LevelCritical:
		return criticalColor
	case assessment.LevelHigh:
		return highColor
	case assessment.LevelModerate:
		return mediumColor
	}
	return lowColor
}

func priorityColor(p catalog.Priority) func(string, ...interface{}) string {
	switch p {
	case catalog.PriorityHigh:
		return highColor
	case catalog.PriorityMedium:
		return mediumColor
	}
	return lowColor
}

func printPreview(w io.Writer, p audits.Preview) {
	ra := p.Assessment
	fmt.Fprintf(w, "%s %s  ZIP %s\n", house, info("%s preparedness", ra.Hazard.Label()), p.Audit.ZIPCode)
	if ra.HazardFallback {
		fmt.Fprintf(w, "%s\n", warning("hazard %q not recognized, scored as %s", p.Audit.PrimaryHazard, ra.Hazard))
	}
	fmt.Fprintf(w, "%s Score %d/100  %s\n\n", chart, ra.Score, levelColor(ra.Level)(" %s ", ra.Level))

	if len(ra.Concerns) > 0 {
		fmt.Fprintln(w, warning("Concerns"))
		for _, c := range ra.Concerns {
			fmt.Fprintf(w, "  %s %s\n", cross, c)
		}
		fmt.Fprintln(w)
	}
	if len(ra.Strengths) > 0 {
		fmt.Fprintln(w, success("Strengths"))
		for _, s := range ra.Strengths {
			fmt.Fprintf(w, "  %s %s\n", check, s)
		}
		fmt.Fprintln(w)
	}

	if len(p.Recommendations) == 0 {
		fmt.Fprintln(w, success("No mitigation actions needed."))
		return
	}
	fmt.Fprintln(w, info("Recommended actions"))
	for i, r := range p.Recommendations {
		fmt.Fprintf(w, "  %2d. %-8s %s\n", i+1, priorityColor(r.Priority)("%s", r.Priority), r.Title)
		fmt.Fprintf(w, "      cost %s, saves about %s/yr  (%s)\n",
			report.USDRange(r.CostMin, r.CostMax), report.USD(r.EstimatedAnnualSavings), r.Citation)
	}
	fmt.Fprintf(w, "\n  Total %s, estimated savings %s/yr\n",
		report.USDRange(p.CostMin, p.CostMax), report.USD(p.AnnualSavings))

	if len(p.Grants) > 0 {
		names := make([]string, 0, len(p.Grants))
		for _, g := range p.Grants {
			names = append(names, g.Name)
		}
		fmt.Fprintf(w, "\n%s %s\n", info("Grants:"), strings.Join(names, ", "))
	}
}

func printError(w io.Writer, msg string, err error) {
	fmt.Fprintf(w, "%s %s: %v\n", cross, errorColor(msg), err)
}

func printSuccess(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", check, success(format, a...))
}
