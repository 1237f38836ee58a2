package components

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

func TestNewSpinner(t *testing.T) {
	s := NewSpinner("Loading")
	if s.label != "Loading" {
		t.Error("Spinner label mismatch")
	}
}

func TestSpinner_Methods(t *testing.T) {
	s := NewSpinner("Init")

	s.SetLabel("Loading")
	if s.Label() != "Loading" {
		t.Errorf("Label = %s, want Loading", s.Label())
	}

	// Test View
	view := s.View()
	if view == "" {
		t.Error("View returned empty")
	}

	// Test ViewWithLabel
	view = s.ViewWithLabel()
	if view == "" {
		t.Error("ViewWithLabel returned empty")
	}

	// Test Init
	if s.Init() == nil {
		t.Error("Init should return command")
	}

	// Test Update
	m, cmd := s.Update(spinner.TickMsg{})
	_ = m
	if cmd == nil {
		t.Error("Update should return command for tick")
	}

	// Test Tick
	if s.Tick() == nil {
		t.Error("Tick should return command")
	}

	// Test Spinner accessor
	if s.Spinner().Spinner.Frames == nil {
		t.Error("Spinner accessor failed")
	}
}

func TestRenderSpinnerCentered(t *testing.T) {
	s := NewSpinner("Loading...")
	view := RenderSpinnerCentered(s, 20, 5)
	if view == "" {
		t.Error("RenderSpinnerCentered returned empty")
	}
}

func TestRenderLineChart(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	s := RenderLineChart(data, 20, 5, "Test")
	if s == "" {
		t.Error("RenderLineChart returned empty")
	}
}

func TestRenderHoursChart(t *testing.T) {
	regular := []float64{8, 7.5, 8}
	overtime := []float64{0, 1}
	s := RenderHoursChart(regular, overtime, 20, 5, "Hours")
	if s == "" {
		t.Error("RenderHoursChart returned empty")
	}
	if RenderHoursChart(nil, nil, 20, 5, "") == "" {
		t.Error("RenderHoursChart should render a placeholder without data")
	}
}

func TestRenderBarChart(t *testing.T) {
	values := []float64{10, 20}
	labels := []string{"A", "B"}
	s := RenderBarChart(values, labels, 20, nil)
	if s == "" {
		t.Error("RenderBarChart returned empty")
	}
	if !strings.Contains(s, "20.0") {
		t.Errorf("RenderBarChart missing default value format: %q", s)
	}

	s = RenderBarChart(values, labels, 20, func(v float64) string { return fmt.Sprintf("$%.2f", v) })
	if !strings.Contains(s, "$20.00") {
		t.Errorf("RenderBarChart ignored format: %q", s)
	}
}

func TestRenderWeeklyPattern(t *testing.T) {
	data := make([]float64, 7)
	names := []string{"M", "T", "W", "T", "F", "S", "S"}
	s := RenderWeeklyPattern(data, names)
	if s == "" {
		t.Error("RenderWeeklyPattern returned empty")
	}
}

func TestRenderSparkline(t *testing.T) {
	data := []float64{1, 2, 3}
	s := RenderSparkline(data, 10)
	if s == "" {
		t.Error("RenderSparkline returned empty")
	}
}

func TestRenderColoredSparkline(t *testing.T) {
	data := []float64{1, 2, 3}
	s := RenderColoredSparkline(data, 10)
	if s == "" {
		t.Error("RenderColoredSparkline returned empty")
	}
}

func TestRenderLegend(t *testing.T) {
	items := []LegendItem{
		{Label: "A", Color: lipgloss.Color("#ffffff")},
	}
	s := RenderLegend(items)
	if s == "" {
		t.Error("RenderLegend returned empty")
	}
}

func TestShiftPercent(t *testing.T) {
	tests := []struct {
		name    string
		elapsed int64
		shift   time.Duration
		want    float64
	}{
		{"half", 4 * 3600, 8 * time.Hour, 50},
		{"over", 9 * 3600, 8 * time.Hour, 112.5},
		{"no shift", 3600, 0, 0},
		{"negative", -5, 8 * time.Hour, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShiftPercent(tt.elapsed, tt.shift); got != tt.want {
				t.Errorf("ShiftPercent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShiftBar_Setters(t *testing.T) {
	bar := NewShiftBar()
	if bar.Percent() != 0 {
		t.Errorf("percent = %f, want 0", bar.Percent())
	}

	if cmd := bar.SetPercent(75.5); cmd == nil {
		t.Error("SetPercent should start the animation")
	}
	if bar.Percent() != 75.5 {
		t.Errorf("percent = %f, want 75.5", bar.Percent())
	}

	bar.SetLabel("Shift")
	if bar.label != "Shift" {
		t.Errorf("label = %s, want Shift", bar.label)
	}
	bar.SetWidth(20)
}

func TestShiftBar_Animation(t *testing.T) {
	bar := NewShiftBar()
	bar.SetPercent(10)

	for i := 0; i < 100 && bar.isAnimating; i++ {
		bar, _ = bar.Update(AnimationTickMsg(time.Now()))
	}
	if bar.isAnimating {
		t.Error("animation never settled")
	}
	if bar.currentPercent != 10 {
		t.Errorf("currentPercent = %f, want 10", bar.currentPercent)
	}
}

func TestShiftBar_View(t *testing.T) {
	bar := NewShiftBar()
	bar.SetLabel("Shift")

	view := bar.View(4*3600, 8*time.Hour, 80)
	if !strings.Contains(view, "50%") {
		t.Errorf("View() missing percent: %q", view)
	}
	if !strings.Contains(view, "04:00:00 left") {
		t.Errorf("View() missing remaining time: %q", view)
	}

	view = bar.View(9*3600, 8*time.Hour, 80)
	if !strings.Contains(view, "+01:00:00 over") {
		t.Errorf("View() missing overtime: %q", view)
	}
}

func TestRenderGradientBar(t *testing.T) {
	if RenderGradientBar(50, 10) == "" {
		t.Error("RenderGradientBar returned empty")
	}
	if RenderGradientBar(50, 0) != "" {
		t.Error("RenderGradientBar with zero width should be empty")
	}
}

func TestSimpleShiftBar(t *testing.T) {
	s := SimpleShiftBar(50, "Shift", 40)
	if !strings.Contains(s, "Shift") || !strings.Contains(s, "50%") {
		t.Errorf("SimpleShiftBar() = %q", s)
	}
}

func TestShiftBarLoading(t *testing.T) {
	for _, frame := range []int{0, 30, 90} {
		if ShiftBarLoading(40, frame) == "" {
			t.Errorf("ShiftBarLoading(frame=%d) returned empty", frame)
		}
	}
}

func TestHexToRGB(t *testing.T) {
	if got := hexToRGB("#ff8000"); got != [3]int{255, 128, 0} {
		t.Errorf("hexToRGB() = %v", got)
	}
	if got := hexToRGB("zz"); got != [3]int{0, 0, 0} {
		t.Errorf("hexToRGB(invalid) = %v", got)
	}
}
