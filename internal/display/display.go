// Package display renders batch progress and the end-of-batch summary for
// a terminal.
package display

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ZacxDev/shrinkvid/internal/processor"
	"github.com/ZacxDev/shrinkvid/pkg/types"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// ShouldColorize reports whether w is an interactive terminal
func ShouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Printer writes status lines and summaries
type Printer struct {
	w     io.Writer
	info  *color.Color
	ok    *color.Color
	warn  *color.Color
	error *color.Color
	head  *color.Color
}

// NewPrinter creates a printer. Colors are used only when colorize is set.
func NewPrinter(w io.Writer, colorize bool) *Printer {
	p := &Printer{
		w:     w,
		info:  color.New(color.FgBlue),
		ok:    color.New(color.FgGreen),
		warn:  color.New(color.FgYellow),
		error: color.New(color.FgRed),
		head:  color.New(color.FgBlue, color.Bold),
	}
	for _, c := range []*color.Color{p.info, p.ok, p.warn, p.error, p.head} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) levelStyle(level processor.Level) (string, *color.Color) {
	switch level {
	case processor.LevelWarn:
		return "WARN", p.warn
	case processor.LevelError:
		return "ERROR", p.error
	default:
		return "INFO", p.info
	}
}

// Status prints one progress line
func (p *Printer) Status(s processor.Status) {
	label, c := p.levelStyle(s.Level)
	fmt.Fprintln(p.w, c.Sprintf("[%s] %s", label, s.Message))
}

// Header prints a section title
func (p *Printer) Header(title string) {
	fmt.Fprintln(p.w, p.head.Sprintf("== %s ==", title))
}

// Summary prints the per-file table and totals
func (p *Printer) Summary(summary types.Summary) {
	if len(summary.Results) == 0 {
		return
	}

	p.Header(fmt.Sprintf("Batch %s (target %s)", shortID(summary.BatchID), humanize.IBytes(uint64(summary.TargetSize))))
	fmt.Fprintln(p.w, RenderSummaryTable(summary))

	parts := []struct {
		outcome types.Outcome
		c       *color.Color
	}{
		{types.OutcomeSucceeded, p.ok},
		{types.OutcomeExhausted, p.warn},
		{types.OutcomeFailed, p.error},
		{types.OutcomeSkipped, p.info},
	}
	line := ""
	for i, part := range parts {
		if i > 0 {
			line += ", "
		}
		line += part.c.Sprintf("%d %s", summary.Count(part.outcome), part.outcome)
	}
	fmt.Fprintln(p.w, line)
}

// RenderSummaryTable returns the results table without color
func RenderSummaryTable(summary types.Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"File", "Outcome", "Resolution", "Original", "Output", "Attempts", "Time"})

	for _, r := range summary.Results {
		resolution := "-"
		output := "-"
		if r.Outcome == types.OutcomeSucceeded {
			resolution = fmt.Sprintf("%dx%d", r.Width, r.Height)
			output = humanize.IBytes(uint64(r.OutputSize))
		}
		original := "-"
		if r.OriginalSize > 0 {
			original = humanize.IBytes(uint64(r.OriginalSize))
		}
		tw.AppendRow(table.Row{
			filepath.Base(r.InputPath),
			string(r.Outcome),
			resolution,
			original,
			output,
			strconv.Itoa(r.Attempts),
			r.Elapsed.Round(time.Second).String(),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 7, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}

// Preview prints a dry run plan for one input
func (p *Printer) Preview(pv processor.Preview) {
	src := pv.Source
	p.Header(filepath.Base(pv.InputPath))
	fmt.Fprintf(p.w, "  Source:     %dx%d, %.2fs, %.2f fps, %s\n",
		src.Width, src.Height, src.DurationSeconds, src.FPS, humanize.IBytes(uint64(src.OriginalSizeBytes)))
	fmt.Fprintf(p.w, "  Bitrate:    %d kbps video + %d kbps audio = %d kbps\n",
		pv.Budget.VideoBPS/1000, pv.Budget.AudioBPS/1000, pv.Budget.TotalBPS/1000)
	fmt.Fprintf(p.w, "  Ratio:      %.2f%%\n", pv.Ratio*100)

	ladder := make([]string, 0, len(pv.Candidates))
	for _, c := range pv.Candidates {
		ladder = append(ladder, c.String())
	}
	fmt.Fprintf(p.w, "  Ladder:     %s\n", strings.Join(ladder, " -> "))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
