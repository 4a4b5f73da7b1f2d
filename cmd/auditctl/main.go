// Command auditctl runs assessments and renders reports locally, and
// performs maintenance against the configured audit store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bryanwahyu/homeready/internal/application/audits"
	"github.com/bryanwahyu/homeready/internal/config"
	"github.com/bryanwahyu/homeready/internal/domain/assessment"
	"github.com/bryanwahyu/homeready/internal/domain/audit"
	"github.com/bryanwahyu/homeready/internal/domain/catalog"
	"github.com/bryanwahyu/homeready/internal/infra/db"
	"github.com/bryanwahyu/homeready/internal/infra/db/memory"
	"github.com/bryanwahyu/homeready/internal/infra/render"
	"github.com/bryanwahyu/homeready/internal/observability"
)

const usage = `usage: auditctl <command> [flags]

commands:
  assess   score a questionnaire and list recommendations
  render   write the PDF (or HTML) report for a questionnaire
  cleanup  delete stale incomplete audits from the configured store
  catalog  validate the built-in catalog and print its size
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	var err error
	switch args[0] {
	case "assess":
		err = cmdAssess(ctx, args[1:], stdout)
	case "render":
		err = cmdRender(ctx, args[1:], stdout)
	case "cleanup":
		err = cmdCleanup(ctx, args[1:], stdout)
	case "catalog":
		err = cmdCatalog(stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		printError(stderr, args[0]+" failed", err)
		return 1
	}
	return 0
}

// auditFlags are shared by assess and render.
type auditFlags struct {
	hazard  string
	zip     string
	answers string
	premium int
}

func (f *auditFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.hazard, "hazard", "earthquake", "primary hazard (earthquake, wildfire, flood, wind or an alias)")
	fs.StringVar(&f.zip, "zip", "", "5-digit ZIP code")
	fs.StringVar(&f.answers, "answers", "", "JSON file with questionnaire answers")
	fs.IntVar(&f.premium, "premium", assessment.DefaultBaselinePremium, "annual premium used for savings estimates, USD")
}

func readAnswers(path string) (audit.Answers, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var as audit.Answers
	if err := json.Unmarshal(data, &as); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return as, nil
}

// localAudit stores the questionnaire in a throwaway in-memory service.
func localAudit(ctx context.Context, f auditFlags, renderer audits.Renderer) (*audits.Service, *audit.Audit, error) {
	cat, err := catalog.Default()
	if err != nil {
		return nil, nil, err
	}
	engine, err := assessment.NewEngine(cat, assessment.WithBaselinePremium(f.premium))
	if err != nil {
		return nil, nil, err
	}
	answers, err := readAnswers(f.answers)
	if err != nil {
		return nil, nil, err
	}
	svc := &audits.Service{
		Repo:     memory.NewAuditRepository(),
		Engine:   engine,
		Catalog:  cat,
		Renderer: renderer,
		Clock:    clockwork.NewRealClock(),
		Metrics:  observability.NewMetricsForTesting(),
		Log:      observability.Discard(),
	}
	a, err := svc.Create(ctx, audits.CreateCommand{ZIPCode: f.zip, Hazard: f.hazard, Answers: answers})
	if err != nil {
		return nil, nil, err
	}
	return svc, a, nil
}

func cmdAssess(ctx context.Context, args []string, stdout io.Writer) error {
	var f auditFlags
	fs := flag.NewFlagSet("assess", flag.ContinueOnError)
	f.register(fs)
	asJSON := fs.Bool("json", false, "print the assessment as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, a, err := localAudit(ctx, f, nil)
	if err != nil {
		return err
	}
	p, err := svc.Assess(ctx, a.ID)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	printPreview(stdout, p)
	return nil
}

func cmdRender(ctx context.Context, args []string, stdout io.Writer) error {
	var f auditFlags
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	f.register(fs)
	out := fs.String("out", "", "output file (default: the report's own file name)")
	htmlOnly := fs.Bool("html", false, "write the HTML instead of converting it to PDF")
	chromePath := fs.String("chrome", os.Getenv("CHROME_PATH"), "Chrome or Chromium executable")
	timeout := fs.Duration("timeout", render.DefaultTimeout, "PDF conversion timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	chrome := render.NewChromeConverter(*chromePath)
	defer chrome.Close()
	svc, a, err := localAudit(ctx, f, render.NewRenderer(chrome, *timeout))
	if err != nil {
		return err
	}

	var data []byte
	name := *out
	if *htmlOnly {
		if data, err = svc.ReportHTML(ctx, a.ID, audits.ReportOptions{}); err != nil {
			return err
		}
		if name == "" {
			name = "report.html"
		}
	} else {
		rep, err := svc.GenerateReport(ctx, a.ID, audits.ReportOptions{})
		if err != nil {
			return err
		}
		data = rep.PDF
		if name == "" {
			name = rep.Filename
		}
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return err
	}
	printSuccess(stdout, "wrote %s (%d bytes)", name, len(data))
	return nil
}

func cmdCleanup(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	cfgPath := fs.String("config", os.Getenv("CONFIG_PATH"), "server config file")
	days := fs.Int("days", 30, "delete incomplete audits older than this many days")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	store, closeStore, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := &audits.Service{
		Repo:    store,
		Clock:   clockwork.NewRealClock(),
		Metrics: observability.NewMetricsForTesting(),
		Log:     observability.NewLogger(cfg.Log.Level, "text"),
	}
	n, err := svc.Cleanup(ctx, time.Duration(*days)*24*time.Hour)
	if err != nil {
		return err
	}
	printSuccess(stdout, "deleted %d incomplete audits older than %d days", n, *days)
	return nil
}

func cmdCatalog(stdout io.Writer) error {
	cat, err := catalog.Default()
	if err != nil {
		return err
	}
	if _, err := assessment.NewEngine(cat); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s %s\n", chart, info("Catalog"))
	for _, h := range audit.Hazards {
		recs := 0
		for _, r := range cat.Recommendations() {
			if r.Hazard == h {
				recs++
			}
		}
		fmt.Fprintf(stdout, "  %-18s %2d recommendations, %d grants, %d insurance programs\n",
			h.Label(), recs, len(catalog.GrantsFor(cat, h)), len(catalog.InsuranceProgramsFor(cat, h)))
	}
	printSuccess(stdout, "%d recommendations, %d grants, %d insurance programs",
		len(cat.Recommendations()), len(cat.Grants()), len(cat.InsurancePrograms()))
	return nil
}
