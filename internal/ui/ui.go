package ui

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"github.com/doridoridoriand/netsav-go/internal/config"
	"github.com/doridoridoriand/netsav-go/internal/state"
)

const (
	uiRefreshInterval = 500 * time.Millisecond
	minBoxHeight      = 4
)

// Quorum reports whether ordinary monitoring is currently allowed.
type Quorum interface {
	Active() bool
	DownCount() int
	Registered() int
}

// UI renders a TUI view of target status.
type UI struct {
	cfg    config.GlobalOptions
	state  state.Store
	quorum Quorum
}

// New returns a UI instance. quorum may be nil.
func New(cfg config.GlobalOptions, store state.Store, quorum Quorum) *UI {
	return &UI{cfg: cfg, state: store, quorum: quorum}
}

// Run blocks until the context is cancelled or the user quits.
func (u *UI) Run(ctx context.Context) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	return u.RunScreen(ctx, screen)
}

// RunScreen drives an already created screen. It initializes and finalizes it.
func (u *UI) RunScreen(ctx context.Context, screen tcell.Screen) error {
	if err := screen.Init(); err != nil {
		return err
	}
	screen.HideCursor()
	defer screen.Fini()

	events := make(chan tcell.Event, 1)
	go pollEvents(ctx, screen, events)

	refresh := time.NewTicker(uiRefreshInterval)
	defer refresh.Stop()

	for {
		u.render(screen, u.state.GetSnapshot())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-refresh.C:
		case ev := <-events:
			if quit(ev) {
				return context.Canceled
			}
			if _, ok := ev.(*tcell.EventResize); ok {
				screen.Sync()
			}
		}
	}
}

// pollEvents forwards screen events until the screen is finalized or ctx ends.
func pollEvents(ctx context.Context, screen tcell.Screen, out chan<- tcell.Event) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func quit(ev tcell.Event) bool {
	key, ok := ev.(*tcell.EventKey)
	if !ok {
		return false
	}
	return key.Key() == tcell.KeyCtrlC || key.Key() == tcell.KeyEscape || key.Rune() == 'q'
}

func (u *UI) render(screen tcell.Screen, snapshot []state.TargetStatus) {
	screen.Clear()
	defer screen.Show()

	width, height := screen.Size()
	if width < 20 || height < 5 {
		return
	}

	bold := tcell.StyleDefault.Bold(true)
	header := fmt.Sprintf(" netsav-go  %s  (q to quit)", time.Now().Format(time.DateTime))
	putLine(screen, 0, 0, width, line{{header, bold}})
	status, style := u.formatQuorum()
	putLine(screen, 0, 1, width, line{{status, style}})

	top := 2
	for _, group := range groupTargets(snapshot) {
		room := height - top
		if room < minBoxHeight {
			break
		}
		boxHeight := min(len(group.Targets)+2, room)
		drawFrame(screen, 0, top, width, boxHeight, group.Name)
		for i, target := range group.Targets {
			if i >= boxHeight-2 {
				break
			}
			putLine(screen, 1, top+1+i, width-2, formatTargetLine(width-2, target))
		}
		top += boxHeight
	}
}

func (u *UI) formatQuorum() (string, tcell.Style) {
	label := "ACTIVE"
	style := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	down, total := 0, 0
	if u.quorum != nil {
		down, total = u.quorum.DownCount(), u.quorum.Registered()
		if !u.quorum.Active() {
			label = "SUSPENDED"
			style = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
		}
	}
	return fmt.Sprintf(" monitoring=%s  references_down=%d/%d  log_level=%s", label, down, total, u.cfg.LogLevel), style
}

type targetGroup struct {
	Name    string
	Targets []state.TargetStatus
}

// groupTargets splits references from ordinary targets. Empty groups are omitted.
func groupTargets(snapshot []state.TargetStatus) []targetGroup {
	var references, targets []state.TargetStatus
	for _, target := range snapshot {
		if target.Reference {
			references = append(references, target)
		} else {
			targets = append(targets, target)
		}
	}
	result := make([]targetGroup, 0, 2)
	if len(references) > 0 {
		result = append(result, targetGroup{Name: "references", Targets: references})
	}
	if len(targets) > 0 {
		result = append(result, targetGroup{Name: "targets", Targets: targets})
	}
	return result
}

// segment is a run of text drawn with one style.
type segment struct {
	text  string
	style tcell.Style
}

// line is a row of segments.
type line []segment

func (l line) String() string {
	var b strings.Builder
	for _, seg := range l {
		b.WriteString(seg.text)
	}
	return b.String()
}

func (l line) width() int {
	n := 0
	for _, seg := range l {
		n += utf8.RuneCountInString(seg.text)
	}
	return n
}

// clip cuts l so that it is at most width runes wide.
func (l line) clip(width int) line {
	out := make(line, 0, len(l))
	left := width
	for _, seg := range l {
		if left <= 0 {
			break
		}
		runes := []rune(seg.text)
		if len(runes) > left {
			runes = runes[:left]
		}
		out = append(out, segment{string(runes), seg.style})
		left -= len(runes)
	}
	return out
}

func formatTargetLine(width int, target state.TargetStatus) line {
	plain := tcell.StyleDefault
	style := stateStyle(target.State)
	l := line{
		{fit(target.Name, min(14, width)) + " ", plain},
		{fit(fmt.Sprintf("%s:%d", target.Address, target.Port), min(22, width)) + " ", plain},
		{fit(target.State.String(), 11) + " ", style},
		{fit(fmt.Sprintf("NEXT:%ds", target.Remaining), 10) + " ", plain},
		{fit(fmt.Sprintf("OK:%.1f%%", successPercent(target)), 10) + " ", style},
	}
	if barWidth := width - l.width(); barWidth > 0 {
		l = append(l, segment{buildBar(target.History, barWidth), style})
	}
	return l.clip(width)
}

// buildBar renders the newest cycles right-aligned: '#' available, '_' unavailable.
func buildBar(history []state.CyclePoint, width int) string {
	if width <= 0 {
		return ""
	}
	if len(history) > width {
		history = history[len(history)-width:]
	}
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", width-len(history)))
	for _, point := range history {
		if point.State == state.Available {
			b.WriteByte('#')
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// drawFrame outlines a box with the group title embedded in the top edge.
func drawFrame(screen tcell.Screen, x, y, width, height int, title string) {
	if width < 2 || height < 2 {
		return
	}
	right, bottom := x+width-1, y+height-1
	plain := tcell.StyleDefault
	for col := x + 1; col < right; col++ {
		screen.SetContent(col, y, tcell.RuneHLine, nil, plain)
		screen.SetContent(col, bottom, tcell.RuneHLine, nil, plain)
	}
	for row := y + 1; row < bottom; row++ {
		screen.SetContent(x, row, tcell.RuneVLine, nil, plain)
		screen.SetContent(right, row, tcell.RuneVLine, nil, plain)
	}
	screen.SetContent(x, y, tcell.RuneULCorner, nil, plain)
	screen.SetContent(right, y, tcell.RuneURCorner, nil, plain)
	screen.SetContent(x, bottom, tcell.RuneLLCorner, nil, plain)
	screen.SetContent(right, bottom, tcell.RuneLRCorner, nil, plain)

	if width > 4 {
		label := line{{" " + title + " ", plain.Bold(true)}}.clip(width - 4)
		putSegments(screen, x+2, y, label)
	}
}

// putLine draws l at (x, y) and blanks the rest of the row up to width.
func putLine(screen tcell.Screen, x, y, width int, l line) {
	if width <= 0 {
		return
	}
	l = l.clip(width)
	col := putSegments(screen, x, y, l)
	for ; col < x+width; col++ {
		screen.SetContent(col, y, ' ', nil, tcell.StyleDefault)
	}
}

func putSegments(screen tcell.Screen, x, y int, l line) int {
	col := x
	for _, seg := range l {
		for _, r := range seg.text {
			screen.SetContent(col, y, r, nil, seg.style)
			col++
		}
	}
	return col
}

// fit pads value with spaces or truncates it to exactly width runes.
func fit(value string, width int) string {
	if width <= 0 {
		return ""
	}
	n := utf8.RuneCountInString(value)
	switch {
	case n > width:
		return string([]rune(value)[:width])
	case n < width:
		return value + strings.Repeat(" ", width-n)
	}
	return value
}

func successPercent(target state.TargetStatus) float64 {
	if target.TotalAttempts == 0 {
		return 0.0
	}
	return float64(target.TotalSuccesses) / float64(target.TotalAttempts) * 100.0
}

func stateStyle(st state.State) tcell.Style {
	switch st {
	case state.Available:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	case state.Unavailable:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
}
