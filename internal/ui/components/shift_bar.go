package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/fichaje-tui/internal/logger"
	"github.com/j-veylop/fichaje-tui/internal/tracking"
	"github.com/j-veylop/fichaje-tui/internal/ui/styles"
)

// AnimationTickMsg drives the shift bar easing.
type AnimationTickMsg time.Time

func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*50, func(t time.Time) tea.Msg {
		return AnimationTickMsg(t)
	})
}

// ShiftBar shows how far the running session is into the planned shift.
type ShiftBar struct {
	progress       progress.Model
	label          string
	percent        float64
	isAnimating    bool
	targetPercent  float64
	currentPercent float64
}

// NewShiftBar creates a shift bar with the default gradient.
func NewShiftBar() ShiftBar {
	return NewShiftBarWithWidth(30)
}

// NewShiftBarWithWidth creates a shift bar with a specific width.
func NewShiftBarWithWidth(width int) ShiftBar {
	p := progress.New(
		progress.WithScaledGradient("#51cf66", "#ff6b6b"),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	return ShiftBar{progress: p}
}

// ShiftPercent is elapsed over shift as a percentage, unclamped.
func ShiftPercent(elapsed int64, shift time.Duration) float64 {
	if shift <= 0 || elapsed <= 0 {
		return 0
	}
	return float64(elapsed) / shift.Seconds() * 100
}

// Init initializes the progress bar model.
func (b ShiftBar) Init() tea.Cmd {
	return nil
}

// Update eases the displayed percent toward the target.
func (b ShiftBar) Update(msg tea.Msg) (ShiftBar, tea.Cmd) {
	var cmds []tea.Cmd

	if _, ok := msg.(AnimationTickMsg); ok && b.isAnimating {
		diff := b.targetPercent - b.currentPercent
		switch {
		case diff > 0:
			b.currentPercent += max(diff/10, 0.5)
			b.currentPercent = min(b.currentPercent, b.targetPercent)
			cmds = append(cmds, animationTick())
		case diff < 0:
			b.currentPercent -= max(-diff/10, 0.5)
			b.currentPercent = max(b.currentPercent, b.targetPercent)
			cmds = append(cmds, animationTick())
		default:
			b.isAnimating = false
		}
	}

	model, cmd := b.progress.Update(msg)
	if p, ok := model.(progress.Model); ok {
		b.progress = p
	}
	cmds = append(cmds, cmd)

	return b, tea.Batch(cmds...)
}

// SetPercent sets the target percentage.
func (b *ShiftBar) SetPercent(percent float64) tea.Cmd {
	b.percent = percent
	b.targetPercent = percent

	bar := min(percent, 100) / 100
	if !b.isAnimating {
		b.isAnimating = true
		return tea.Batch(b.progress.SetPercent(bar), animationTick())
	}
	return b.progress.SetPercent(bar)
}

// Percent returns the last percentage set.
func (b ShiftBar) Percent() float64 {
	return b.percent
}

// SetLabel sets the bar label.
func (b *ShiftBar) SetLabel(label string) {
	b.label = label
}

// SetWidth sets the progress bar width.
func (b *ShiftBar) SetWidth(width int) {
	b.progress.Width = width
}

// View renders label, bar, elapsed and remaining time.
func (b ShiftBar) View(elapsed int64, shift time.Duration, width int) string {
	percent := ShiftPercent(elapsed, shift)

	b.progress.Width = max(width-40, 10)
	bar := b.progress.ViewAs(min(percent, 100) / 100)

	percentStr := styles.GetShiftStyle(percent).
		Width(6).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.0f%%", percent))

	remaining := int64(shift.Seconds()) - elapsed
	var tail string
	if remaining > 0 {
		tail = styles.HelpStyle.Render(tracking.FormatHHMMSS(remaining) + " left")
	} else {
		tail = styles.ShiftOverStyle.Render("+" + tracking.FormatHHMMSS(-remaining) + " over")
	}

	labelStr := styles.ProgressLabelStyle.Width(12).Render(b.label)

	return lipgloss.JoinHorizontal(lipgloss.Center, labelStr, bar, " ", percentStr, "  ", tail)
}

// RenderGradientBar renders just the bar part with gradient colors.
func RenderGradientBar(percent float64, width int) string {
	if width < 1 {
		return ""
	}

	filled := int(float64(width) * percent / 100)
	filled = max(0, min(filled, width))

	var barChars []string
	for i := 0; i < width; i++ {
		if i < filled {
			t := float64(i) / float64(max(1, width-1))
			color := interpolateColor("#51cf66", "#ff6b6b", t)
			barChars = append(barChars, lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("█"))
		} else {
			barChars = append(barChars, lipgloss.NewStyle().Foreground(styles.Subtle).Render("░"))
		}
	}

	return strings.Join(barChars, "")
}

// SimpleShiftBar renders a one-line ASCII bar for plain output.
func SimpleShiftBar(percent float64, label string, width int) string {
	percentWidth := 6
	barWidth := max(width-len(label)-1-percentWidth-4, 5)

	bar := RenderGradientBar(min(percent, 100), barWidth)

	labelStr := lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(label)
	percentStr := styles.GetShiftStyle(percent).
		Width(percentWidth).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.0f%%", percent))

	return fmt.Sprintf("%s [%s] %s", labelStr, bar, percentStr)
}

// ShiftBarLoading renders a shimmering placeholder while data loads.
func ShiftBarLoading(width int, frame int) string {
	const cycle = 120

	barWidth := max(width-16, 10)

	t := float64(frame%cycle) / float64(cycle)
	p := t * 2
	if t >= 0.5 {
		p = (1 - t) * 2
	}
	eased := p * p * (3 - 2*p)
	shimmerPos := int(eased * float64(barWidth))

	var barChars []string
	for i := 0; i < barWidth; i++ {
		dist := shimmerPos - i
		if dist < 0 {
			dist = -dist
		}
		switch {
		case dist < 3:
			barChars = append(barChars, lipgloss.NewStyle().Foreground(styles.Primary).Render("▓"))
		case dist < 5:
			barChars = append(barChars, lipgloss.NewStyle().Foreground(styles.TextSecondary).Render("▒"))
		default:
			barChars = append(barChars, lipgloss.NewStyle().Foreground(styles.BgLight).Render("░"))
		}
	}

	dots := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	dot := lipgloss.NewStyle().Foreground(styles.Primary).Render(dots[(frame/2)%len(dots)])

	return "    " + strings.Join(barChars, "") + " " + dot
}

func interpolateColor(fromHex, toHex string, t float64) string {
	from := hexToRGB(fromHex)
	to := hexToRGB(toHex)

	r := int(float64(from[0]) + t*(float64(to[0])-float64(from[0])))
	g := int(float64(from[1]) + t*(float64(to[1])-float64(from[1])))
	b := int(float64(from[2]) + t*(float64(to[2])-float64(from[2])))

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hexToRGB(hex string) [3]int {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		logger.Error("failed to parse hex color", "hex", hex, "error", err)
		return [3]int{0, 0, 0}
	}
	return [3]int{r, g, b}
}
