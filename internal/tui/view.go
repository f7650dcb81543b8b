package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-sched-timeline/internal/schedule"
	"github.com/randomizedcoder/go-sched-timeline/internal/summary"
	"github.com/randomizedcoder/go-sched-timeline/internal/timeline"
)

// Progress table column widths, excluding the bar.
const (
	colPID      = 8
	colArrival  = 9
	colBurst    = 7
	colPercent  = 6
	colComplete = 10
	colTAT      = 6
	colWT       = 6
	colRT       = 6

	minBarWidth = 10
)

// =============================================================================
// Main View Rendering
// =============================================================================

// renderSummaryView renders the timeline, progress bars and averages.
func (m Model) renderSummaryView() string {
	var sections []string

	sections = append(sections, m.renderHeader())

	if m.current != nil {
		sections = append(sections, m.renderTimeline())
		if len(m.current.Snapshot.Stats) > 0 {
			sections = append(sections, m.renderProgressTable())
		}
		if !m.current.Averages.Empty {
			sections = append(sections, m.renderAverages())
		}
	}

	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderDetailedView renders the plain-text result report.
func (m Model) renderDetailedView() string {
	report := strings.TrimRight(summary.Report(m.current.Snapshot), "\n")
	if report == "" {
		report = dimStyle.Render("No results")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Results"),
		report,
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		boxStyle.Width(m.width-2).Render(content),
		m.renderFooter(),
	)
}

// contentWidth is the usable width inside a box.
func (m Model) contentWidth() int {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	header := fmt.Sprintf(" %s │ %s │ Gen: %d ",
		m.title,
		m.statusLabel(),
		m.sessions.Generation(),
	)
	if m.current != nil {
		header += fmt.Sprintf("│ %s ", m.current.ID)
	}

	content := headerStyle.Render(header)
	if m.err != nil {
		content = lipgloss.JoinVertical(lipgloss.Left,
			content,
			statusError.Render("Error: "+m.err.Error()),
		)
	}
	return content
}

func (m Model) statusLabel() string {
	switch {
	case m.loading:
		return statusWarning.Render("● Running")
	case m.err != nil:
		return statusError.Render("● Error")
	case m.current == nil:
		return mutedStyle.Render("● Idle")
	default:
		return statusOK.Render("● Ready")
	}
}

// =============================================================================
// Timeline
// =============================================================================

func (m Model) renderTimeline() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Gantt Chart"),
		RenderTimeline(m.current.Timeline, m.contentWidth()),
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// RenderTimeline draws tl into width terminal columns: a row of coloured
// blocks with the boundary labels beneath.
func RenderTimeline(tl timeline.Timeline, width int) string {
	switch {
	case tl.Degenerate:
		return dimStyle.Render(strings.TrimSpace("Zero-length span " + blockLabels(tl.Blocks)))
	case tl.Empty():
		return dimStyle.Render("No dispatch events")
	}
	return renderTimelineRows(tl.Blocks, tl.Columns(width), width)
}

// renderTimelineRows draws one coloured cell run per block and the boundary
// labels beneath it. Blocks that round to zero columns are not drawn but
// their labels still take part in placement.
func renderTimelineRows(blocks []timeline.Block, cols []int, width int) string {
	var cells []string
	labels := []rune(strings.Repeat(" ", width))

	col := 0
	for i, b := range blocks {
		w := cols[i]
		if w > 0 {
			cells = append(cells, blockStyle(b.Color, w).Render(truncate(b.Label, w)))
		}
		if b.StartLabel != "" {
			placeLabel(labels, col, b.StartLabel)
		}
		col += w
		placeLabel(labels, col, b.EndLabel)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, cells...),
		mutedStyle.Render(strings.TrimRight(string(labels), " ")),
	)
}

func blockLabels(blocks []timeline.Block) string {
	names := make([]string, len(blocks))
	for i, b := range blocks {
		names[i] = b.Label
	}
	return strings.Join(names, " ")
}

// =============================================================================
// Progress Table
// =============================================================================

func (m Model) barWidth() int {
	fixed := colPID + colArrival + colBurst + colPercent + colComplete + colTAT + colWT + colRT
	w := m.contentWidth() - fixed
	if w < minBarWidth {
		w = minBarWidth
	}
	return w
}

func (m Model) renderProgressTable() string {
	barWidth := m.barWidth()

	header := tableHeaderStyle.Render(
		padRight("PID", colPID) +
			padRight("Arrival", colArrival) +
			padRight("Burst", colBurst) +
			padRight("Progress", barWidth+colPercent) +
			padRight("Complete", colComplete) +
			padRight("TAT", colTAT) +
			padRight("WT", colWT) +
			padRight("RT", colRT),
	)

	rows := []string{header}
	for i, p := range m.current.Snapshot.Stats {
		rows = append(rows, m.renderProgressRow(i, p, barWidth))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Progress")}, rows...)...,
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

func (m Model) renderProgressRow(i int, p schedule.ProcessResult, barWidth int) string {
	style := tableRowEvenStyle
	if i%2 == 1 {
		style = tableRowOddStyle
	}

	pct := m.Progress(p.PID)

	bar := m.bar
	bar.Width = barWidth
	if c, ok := m.colors[p.PID]; ok {
		bar.FullColor = string(c)
	}

	lead := style.Render(
		padRight("P"+string(p.PID), colPID) +
			padRight(summary.FormatNumber(p.Arrival), colArrival) +
			padRight(summary.FormatNumber(p.Burst), colBurst),
	)
	percent := boldStyle.Render(padRight(fmt.Sprintf(" %3.0f%%", pct), colPercent))
	tail := style.Render(
		padRight(summary.FormatValue(p.CompleteTime), colComplete) +
			padRight(summary.FormatValue(p.Turnaround), colTAT) +
			padRight(summary.FormatValue(p.Waiting), colWT) +
			padRight(summary.FormatValue(p.Response), colRT),
	)

	return lead + bar.ViewAs(pct/100) + percent + tail
}

// =============================================================================
// Averages
// =============================================================================

func (m Model) renderAverages() string {
	rows := []string{sectionHeaderStyle.Render("Average Metrics")}
	for _, r := range m.current.Averages.Rows() {
		rows = append(rows, RenderKeyValueWide(r.Label, r.Value))
	}
	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	return footerStyle.Render(m.help.View(m.keys))
}
