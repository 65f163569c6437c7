package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/avsessiond/internal/dbus"
	"github.com/jmylchreest/avsessiond/internal/model"
	"github.com/jmylchreest/avsessiond/internal/store"
)

// styles holds the lipgloss styles used for text output.
type styles struct {
	header lipgloss.Style
	label  lipgloss.Style
	ok     lipgloss.Style
	fail   lipgloss.Style
	dim    lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{header: plain, label: plain, ok: plain, fail: plain, dim: plain}
	}
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		fail:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// renderer formats replies for the terminal.
type renderer struct {
	st         styles
	timeFormat string
	now        func() time.Time
}

func newRenderer(color bool, timeFormat string) *renderer {
	return &renderer{st: newStyles(color), timeFormat: timeFormat, now: time.Now}
}

func (r *renderer) formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	if r.timeFormat == "absolute" {
		return t.Local().Format("2006-01-02 15:04:05")
	}
	return humanize.RelTime(t, r.now(), "ago", "from now")
}

func (r *renderer) field(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s %s\n", r.st.label.Render(fmt.Sprintf("%-18s", label+":")), value)
}

func (r *renderer) yesNo(v bool) string {
	if v {
		return r.st.ok.Render("yes")
	}
	return r.st.fail.Render("no")
}

// snapshot renders the actual session state.
func (r *renderer) snapshot(s model.Snapshot) string {
	var b strings.Builder
	b.WriteString(r.st.header.Render("Session state") + "\n")
	r.field(&b, "Category", s.Category)
	r.field(&b, "Mode", s.Mode)
	r.field(&b, "Options", strings.Join(s.Options, ", "))
	r.field(&b, "Active", r.yesNo(s.Active))
	r.field(&b, "Route", s.Route)
	if s.SampleRate > 0 {
		r.field(&b, "Sample rate", humanize.SIWithDigits(s.SampleRate, 1, "Hz"))
	}
	if s.IOBufferDuration > 0 {
		d := time.Duration(s.IOBufferDuration * float64(time.Second))
		r.field(&b, "IO buffer", fmt.Sprintf("%s (%s frames)", d.Round(time.Microsecond), humanize.Comma(int64(s.IOBufferFrames))))
	}
	r.field(&b, "Preferred input", s.PreferredInput)
	r.field(&b, "Data source", s.DataSource)
	r.field(&b, "Polar pattern", s.PolarPattern)
	r.field(&b, "Input orientation", s.InputOrientation)
	return b.String()
}

// status renders the daemon's enforcement status.
func (r *renderer) status(s dbus.Status) string {
	var b strings.Builder
	b.WriteString(r.st.header.Render("Daemon status") + "\n")
	r.field(&b, "Auto-reapply", r.yesNo(s.AutoReapply))
	if !s.HasDesired {
		r.field(&b, "Desired", r.st.dim.Render("none"))
		return b.String()
	}
	r.field(&b, "Revision", s.Revision)
	r.field(&b, "Accepted", r.formatTime(s.AcceptedAt))
	b.WriteString("\n" + r.request(s.Desired))
	return b.String()
}

// request renders a portable request.
func (r *renderer) request(req model.Request) string {
	var b strings.Builder
	b.WriteString(r.st.header.Render("Desired configuration") + "\n")
	r.field(&b, "Category", req.Category)
	r.field(&b, "Mode", req.Mode)
	r.field(&b, "Options", strings.Join(req.Options, ", "))
	if req.Active != nil {
		r.field(&b, "Active", r.yesNo(*req.Active))
	}
	if req.SampleRate != nil {
		r.field(&b, "Sample rate", humanize.SIWithDigits(*req.SampleRate, 1, "Hz"))
	}
	if req.IOBufferDuration != nil {
		r.field(&b, "IO buffer", time.Duration(*req.IOBufferDuration*float64(time.Second)).String())
	}
	r.field(&b, "Input orientation", req.InputOrientation)
	r.field(&b, "Preferred input", req.PreferredInput)
	r.field(&b, "Data source", req.DataSourceName)
	r.field(&b, "Polar pattern", req.PolarPattern)
	return b.String()
}

// config renders a resolved configuration.
func (r *renderer) config(cfg model.Config) string {
	return r.request(cfg.Request())
}

// history renders entries newest first, one per line.
func (r *renderer) history(entries []store.Entry) string {
	if len(entries) == 0 {
		return r.st.dim.Render("no reconciliation attempts") + "\n"
	}
	var b strings.Builder
	for _, e := range entries {
		mark := r.st.ok.Render("ok  ")
		if !e.OK {
			mark = r.st.fail.Render("FAIL")
		}
		fmt.Fprintf(&b, "%s %-20s %-18s %s", mark, r.formatTime(e.At), e.Trigger, r.st.dim.Render(shortRevision(e.Revision)))
		if e.Error != "" {
			fmt.Fprintf(&b, "  %s", e.Error)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// signal renders one monitored signal.
func (r *renderer) signal(ev dbus.SignalEvent) string {
	switch ev.Name {
	case dbus.SignalDesiredChanged:
		return fmt.Sprintf("%s %s %s", r.formatTime(r.now()), r.st.header.Render("desired"), ev.Revision)
	default:
		mark := r.st.ok.Render("reapplied")
		line := fmt.Sprintf("%s %s %s %s", r.formatTime(r.now()), mark, ev.Trigger, r.st.dim.Render(shortRevision(ev.Revision)))
		if !ev.OK {
			line = fmt.Sprintf("%s %s %s %s: %s", r.formatTime(r.now()), r.st.fail.Render("failed"), ev.Trigger,
				r.st.dim.Render(shortRevision(ev.Revision)), ev.Error)
		}
		return line
	}
}

// shortRevision trims a ULID to its random suffix for compact listings.
func shortRevision(rev string) string {
	if len(rev) <= 10 {
		return rev
	}
	return rev[len(rev)-10:]
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describeError adds a hint for errors that usually mean the daemon is down.
func describeError(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "org.freedesktop.DBus.Error.ServiceUnknown") ||
		strings.Contains(msg, "org.freedesktop.DBus.Error.NameHasNoOwner") {
		return msg + " (is avsessiond running?)"
	}
	return msg
}
