package timeline

import (
	"math"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-sched-timeline/internal/schedule"
)

// DefaultViewportWidth is the pixel width the whole timeline is scaled to.
const DefaultViewportWidth = 983

// Options configures a build.
type Options struct {
	ViewportWidth float64
	Palette       []lipgloss.Color
	IdleColor     lipgloss.Color
}

// DefaultOptions returns the standard viewport and palette.
func DefaultOptions() Options {
	return Options{
		ViewportWidth: DefaultViewportWidth,
		Palette:       DefaultPalette,
		IdleColor:     DefaultIdleColor,
	}
}

// Block is one renderable dispatch interval.
type Block struct {
	PID        schedule.PID
	Start      float64
	End        float64
	PixelWidth float64
	Color      lipgloss.Color
	Label      string

	// StartLabel is empty when it would repeat the previous block's EndLabel.
	StartLabel string
	EndLabel   string
}

// Timeline is the result of a build.
type Timeline struct {
	Blocks    []Block
	MinStart  float64
	MaxEnd    float64
	TotalTime float64
	Scale     float64 // pixels per time unit

	// Degenerate is set when the event span is not positive; every block
	// then has zero width.
	Degenerate bool

	// Skipped counts events dropped for non-positive duration.
	Skipped int
}

// Empty reports whether there is nothing to draw.
func (t Timeline) Empty() bool {
	return len(t.Blocks) == 0
}

// TotalWidth returns the summed pixel width of all blocks.
func (t Timeline) TotalWidth() float64 {
	var sum float64
	for _, b := range t.Blocks {
		sum += b.PixelWidth
	}
	return sum
}

// Build scales events into blocks. A nil or empty slice yields an empty
// Timeline. Events keep their order and are never merged.
func Build(events []schedule.DispatchEvent, opts Options) Timeline {
	if len(events) == 0 {
		return Timeline{}
	}

	minStart, maxEnd := events[0].Start, events[0].End
	for _, e := range events[1:] {
		minStart = math.Min(minStart, e.Start)
		maxEnd = math.Max(maxEnd, e.End)
	}

	tl := Timeline{
		MinStart:  minStart,
		MaxEnd:    maxEnd,
		TotalTime: maxEnd - minStart,
	}
	if tl.TotalTime > 0 && opts.ViewportWidth > 0 {
		tl.Scale = opts.ViewportWidth / tl.TotalTime
	} else {
		tl.Degenerate = true
	}

	colors := NewColorAllocator(opts.Palette, opts.IdleColor)
	tl.Blocks = make([]Block, 0, len(events))

	prevEnd := ""
	for _, e := range events {
		d := e.Duration()
		if d <= 0 {
			tl.Skipped++
			continue
		}

		// Only drawn blocks bind a colour.
		color := colors.ColorFor(e.PID)

		startLabel := formatTime(e.Start)
		endLabel := formatTime(e.End)
		shownStart := startLabel
		if startLabel == prevEnd {
			shownStart = ""
		}
		prevEnd = endLabel

		tl.Blocks = append(tl.Blocks, Block{
			PID:        e.PID,
			Start:      e.Start,
			End:        e.End,
			PixelWidth: d * tl.Scale,
			Color:      color,
			Label:      blockLabel(e),
			StartLabel: shownStart,
			EndLabel:   endLabel,
		})
	}

	return tl
}

// blockLabel returns "Idle", "P{pid}" or "P{pid}(Q{level})".
func blockLabel(e schedule.DispatchEvent) string {
	if e.PID.IsIdle() {
		return "Idle"
	}
	label := "P" + string(e.PID)
	if e.QueueLevel != nil {
		label += "(Q" + strconv.Itoa(*e.QueueLevel) + ")"
	}
	return label
}

func formatTime(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Columns distributes width terminal cells across the blocks in proportion to
// their pixel widths. The result always sums to width (or to 0 when the
// timeline has no positive width), using largest-remainder rounding.
func (t Timeline) Columns(width int) []int {
	cols := make([]int, len(t.Blocks))
	total := t.TotalWidth()
	if width <= 0 || total <= 0 {
		return cols
	}

	type remainder struct {
		idx  int
		frac float64
	}
	rems := make([]remainder, len(t.Blocks))
	assigned := 0
	for i, b := range t.Blocks {
		exact := b.PixelWidth / total * float64(width)
		cols[i] = int(math.Floor(exact))
		assigned += cols[i]
		rems[i] = remainder{idx: i, frac: exact - float64(cols[i])}
	}

	sort.SliceStable(rems, func(i, j int) bool {
		return rems[i].frac > rems[j].frac
	})
	for i := 0; assigned < width && i < len(rems); i++ {
		cols[rems[i].idx]++
		assigned++
	}
	return cols
}
