// Package report renders preflight, provisioning, and verification results
// for the terminal. Two modes: customer output is the short actionable view,
// diagnostic output includes every message and timing for debugging.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/accelctl/accelctl/internal/preflight"
	"github.com/accelctl/accelctl/internal/pricing"
	"github.com/accelctl/accelctl/internal/provision"
	"github.com/accelctl/accelctl/internal/verify"
)

// Mode selects the rendering depth.
type Mode string

const (
	// ModeCustomer shows verdicts and remediations only.
	ModeCustomer Mode = "customer"
	// ModeDiagnostic shows every check message, step timing, and retry count.
	ModeDiagnostic Mode = "diagnostic"
)

var (
	colorGreen = lipgloss.Color("#22c55e")
	colorRed   = lipgloss.Color("#ef4444")
	colorAmber = lipgloss.Color("#f59e0b")
	colorDim   = lipgloss.Color("#6b7280")
	colorWhite = lipgloss.Color("#f9fafb")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	passStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle  = lipgloss.NewStyle().Foreground(colorAmber)
	failStyle  = lipgloss.NewStyle().Foreground(colorRed)
	dimStyle   = lipgloss.NewStyle().Foreground(colorDim)
)

// fmtDurUnit is the rounding granularity for displayed durations.
const fmtDurUnit = 100 * time.Millisecond

// Printer writes rendered reports to a single destination.
type Printer struct {
	out   io.Writer
	mode  Mode
	color bool
}

// NewPrinter builds a printer. Color is enabled only when out is an
// interactive terminal.
func NewPrinter(out io.Writer, mode Mode) *Printer {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Printer{out: out, mode: mode, color: color}
}

// JSON writes v as indented JSON, bypassing all styling.
func (p *Printer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	fmt.Fprintln(p.out, string(data))
	return nil
}

func (p *Printer) styled(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *Printer) header(title string) {
	fmt.Fprintf(p.out, "\n  %s\n", p.styled(titleStyle, title))
	fmt.Fprintln(p.out, "  "+strings.Repeat("═", len(title)))
	fmt.Fprintln(p.out)
}

func statusGlyph(s preflight.Status) string {
	switch s {
	case preflight.StatusPass:
		return "✓"
	case preflight.StatusWarn:
		return "!"
	default:
		return "✗"
	}
}

func (p *Printer) statusStyle(s preflight.Status) lipgloss.Style {
	switch s {
	case preflight.StatusPass:
		return passStyle
	case preflight.StatusWarn:
		return warnStyle
	default:
		return failStyle
	}
}

// PreflightReport renders a validation report.
func (p *Printer) PreflightReport(title string, rep *preflight.Report) {
	p.header(title)

	for _, c := range rep.Checks {
		glyph := p.styled(p.statusStyle(c.Status), statusGlyph(c.Status))
		fmt.Fprintf(p.out, "  %s  %-18s", glyph, c.Name)
		if p.mode == ModeDiagnostic {
			fmt.Fprintf(p.out, " %s", c.Message)
		} else if c.Status != preflight.StatusPass {
			fmt.Fprintf(p.out, " %s", c.Message)
		}
		fmt.Fprintln(p.out)
		if c.Remediation != "" {
			fmt.Fprintf(p.out, "       %s\n", p.styled(dimStyle, "→ "+c.Remediation))
		}
	}

	fmt.Fprintln(p.out)
	verdict := p.styled(p.statusStyle(rep.Overall), string(rep.Overall))
	fmt.Fprintf(p.out, "  Overall: %s\n", verdict)

	if rep.Cost != nil {
		fmt.Fprintf(p.out, "  %s\n", p.styled(dimStyle,
			fmt.Sprintf("Estimated cost: %s %.2f/hour (%s %.2f/month)",
				rep.Cost.Currency, rep.Cost.PerHour, rep.Cost.Currency, rep.Cost.PerMonth)))
	}
	fmt.Fprintln(p.out)
}

func outcomeGlyph(s provision.Status) string {
	switch s {
	case provision.StatusSucceeded:
		return "✓"
	case provision.StatusSkippedAlreadySatisfied:
		return "="
	case provision.StatusFailed:
		return "✗"
	default:
		return "○"
	}
}

func (p *Printer) outcomeStyle(s provision.Status) lipgloss.Style {
	switch s {
	case provision.StatusSucceeded, provision.StatusSkippedAlreadySatisfied:
		return passStyle
	case provision.StatusFailed:
		return failStyle
	default:
		return dimStyle
	}
}

// Plan renders a provisioning plan before execution.
func (p *Printer) Plan(plan *provision.Plan) {
	p.header(fmt.Sprintf("plan: %s (%s, %s)", plan.Cluster, plan.Project, plan.Location))
	for i, step := range plan.Steps {
		fmt.Fprintf(p.out, "  %d. %-18s %s  %s\n",
			i+1, step.Action, step.Target,
			p.styled(dimStyle, "est. "+step.EstimatedDuration.String()))
	}
	fmt.Fprintln(p.out)
}

// Outcomes renders execution results step by step.
func (p *Printer) Outcomes(outcomes []provision.Outcome) {
	for _, o := range outcomes {
		glyph := p.styled(p.outcomeStyle(o.Status), outcomeGlyph(o.Status))
		fmt.Fprintf(p.out, "  %s  %-18s %s", glyph, o.Step.Action, o.Step.Target)
		if p.mode == ModeDiagnostic {
			fmt.Fprintf(p.out, "  %s", p.styled(dimStyle, o.Duration.Round(fmtDurUnit).String()))
		}
		fmt.Fprintln(p.out)
		if o.Message != "" && (p.mode == ModeDiagnostic || o.Status == provision.StatusFailed) {
			fmt.Fprintf(p.out, "       %s\n", p.styled(dimStyle, o.Message))
		}
	}
	fmt.Fprintln(p.out)
}

func verifyGlyph(s verify.State) string {
	switch s {
	case verify.StateReady:
		return "✓"
	case verify.StatePending:
		return "◐"
	case verify.StateDegraded:
		return "✗"
	default:
		return "?"
	}
}

func (p *Printer) verifyStyle(s verify.State) lipgloss.Style {
	switch s {
	case verify.StateReady:
		return passStyle
	case verify.StateDegraded:
		return failStyle
	case verify.StateUnknown:
		return warnStyle
	default:
		return dimStyle
	}
}

// VerifyResult renders a verification outcome.
func (p *Printer) VerifyResult(res *verify.Result) {
	p.header("verification")
	for _, h := range res.Healths {
		glyph := p.styled(p.verifyStyle(h.State), verifyGlyph(h.State))
		fmt.Fprintf(p.out, "  %s  %-40s %s", glyph, h.Component.String(), h.State)
		if p.mode == ModeDiagnostic {
			fmt.Fprintf(p.out, "  %s", p.styled(dimStyle, fmt.Sprintf("retries=%d", h.Retries)))
		}
		fmt.Fprintln(p.out)
		if h.Message != "" && (p.mode == ModeDiagnostic || h.State != verify.StateReady) {
			fmt.Fprintf(p.out, "       %s\n", p.styled(dimStyle, h.Message))
		}
	}

	fmt.Fprintln(p.out)
	if res.AllReady {
		fmt.Fprintf(p.out, "  %s after %s\n", p.styled(passStyle, "all components ready"),
			res.Elapsed.Round(fmtDurUnit))
	} else {
		fmt.Fprintf(p.out, "  %s after %s\n", p.styled(failStyle, "verification incomplete"),
			res.Elapsed.Round(fmtDurUnit))
	}
	fmt.Fprintln(p.out)
}

// CostBreakdown renders a pricing estimate via the pricing formatter.
func (p *Printer) CostBreakdown(b *pricing.Breakdown) {
	f := pricing.NewFormatter()
	fmt.Fprintln(p.out, f.Format(b))
}
