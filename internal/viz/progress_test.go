package viz

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/latentwalk/internal/sampler"
)

func TestProgressModel_Batches(t *testing.T) {
	m := NewProgressModel("ducky", 10, nil)

	next, _ := m.Update(BatchMsg(sampler.BatchReport{Batch: 0, Batches: 3, Size: 4, Done: 4, Total: 10, Elapsed: time.Second}))
	m = next.(ProgressModel)
	next, _ = m.Update(BatchMsg(sampler.BatchReport{Batch: 1, Batches: 3, Size: 4, Done: 8, Total: 10, Elapsed: 2 * time.Second}))
	m = next.(ProgressModel)

	if m.Done() != 8 {
		t.Errorf("expected 8 frames done, got %d", m.Done())
	}
	if len(m.durations) != 2 {
		t.Errorf("expected 2 batch durations, got %d", len(m.durations))
	}

	view := m.View()
	if !strings.Contains(view, "2/3") {
		t.Errorf("expected batch counter in view, got:\n%s", view)
	}
	if !strings.Contains(view, "8/10") {
		t.Errorf("expected frame counter in view, got:\n%s", view)
	}
}

func TestProgressModel_DoneQuits(t *testing.T) {
	m := NewProgressModel("cows", 4, nil)
	wantErr := errors.New("batch 1 failed")

	next, cmd := m.Update(DoneMsg{Err: wantErr})
	m = next.(ProgressModel)

	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if !errors.Is(m.Err(), wantErr) {
		t.Errorf("expected %v, got %v", wantErr, m.Err())
	}
	if !strings.Contains(m.View(), "failed") {
		t.Error("expected failure status in view")
	}
}

func TestProgressModel_QuitCancels(t *testing.T) {
	cancelled := 0
	m := NewProgressModel("doggo", 4, func() { cancelled++ })

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(ProgressModel)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(ProgressModel)

	if cancelled != 1 {
		t.Errorf("expected cancel to be called once, got %d", cancelled)
	}
	if !m.Cancelled() {
		t.Error("expected model to be cancelled")
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		percent float64
		filled  int
	}{
		{0, 0},
		{0.5, 5},
		{1, 10},
		{2, 10},
		{-1, 0},
	}

	for _, tt := range tests {
		bar := ProgressBar(tt.percent, 10)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("percent %v: expected %d filled cells, got %d", tt.percent, tt.filled, got)
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil, 5); got != "─────" {
		t.Errorf("expected flat line, got %q", got)
	}

	line := Sparkline([]float64{1, 2, 3, 4}, 4)
	if !strings.Contains(line, "▁") || !strings.Contains(line, "█") {
		t.Errorf("expected lowest and highest bars, got %q", line)
	}
}

func TestMetricsTable(t *testing.T) {
	out := MetricsTable(map[string]float64{"step_length": 0.5, "closure_gap": 1.25})

	gap := strings.Index(out, "closure_gap")
	step := strings.Index(out, "step_length")
	if gap < 0 || step < 0 || gap > step {
		t.Errorf("expected sorted metric names, got:\n%s", out)
	}
	if !strings.Contains(out, "1.250000") {
		t.Errorf("expected formatted value, got:\n%s", out)
	}
}
