package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/san-kum/latentwalk/internal/sampler"
)

const barWidth = 40

type TickMsg time.Time

// BatchMsg reports a finished batch.
type BatchMsg sampler.BatchReport

// DoneMsg ends the view. Err is nil on success.
type DoneMsg struct{ Err error }

// ProgressModel shows batch progress for one sampling run.
type ProgressModel struct {
	title     string
	total     int
	done      int
	batch     int
	batches   int
	durations []float64
	started   time.Time
	frame     int
	finished  bool
	cancelled bool
	err       error
	cancel    context.CancelFunc
}

// NewProgressModel expects total frames. cancel is called when the user quits.
func NewProgressModel(title string, total int, cancel context.CancelFunc) ProgressModel {
	return ProgressModel{
		title:     title,
		total:     total,
		durations: make([]float64, 0),
		started:   time.Now(),
		cancel:    cancel,
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/10, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m ProgressModel) Init() tea.Cmd {
	return tick()
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.cancelled && m.cancel != nil {
				m.cancel()
			}
			m.cancelled = true
		}
	case BatchMsg:
		m.done = msg.Done
		m.batch = msg.Batch + 1
		m.batches = msg.Batches
		if msg.Total > 0 {
			m.total = msg.Total
		}
		m.durations = append(m.durations, msg.Elapsed.Seconds())
	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	case TickMsg:
		if m.finished {
			return m, nil
		}
		m.frame++
		return m, tick()
	}
	return m, nil
}

func (m ProgressModel) Err() error      { return m.err }
func (m ProgressModel) Done() int       { return m.done }
func (m ProgressModel) Cancelled() bool { return m.cancelled }

func (m ProgressModel) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

func (m ProgressModel) View() string {
	var sb strings.Builder

	status := StatusRunning.Render(Spinner(m.frame) + " sampling")
	switch {
	case m.finished && m.err != nil:
		status = StatusFailed.Render("✗ failed")
	case m.finished:
		status = StatusRunning.Render("✓ done")
	case m.cancelled:
		status = StatusFailed.Render("■ cancelling")
	}

	sb.WriteString(Title.Render(m.title) + "  " + status + "\n\n")
	sb.WriteString(ProgressBar(m.percent(), barWidth))
	sb.WriteString(fmt.Sprintf(" %3.0f%%\n", m.percent()*100))

	batches := "-"
	if m.batches > 0 {
		batches = fmt.Sprintf("%d/%d", m.batch, m.batches)
	}
	sb.WriteString(MetricLabel.Render("batch") + MetricValue.Render(batches) + "\n")
	sb.WriteString(MetricLabel.Render("frames") + MetricValue.Render(fmt.Sprintf("%s/%s", humanize.Comma(int64(m.done)), humanize.Comma(int64(m.total)))) + "\n")
	sb.WriteString(MetricLabel.Render("started") + MetricValue.Render(humanize.Time(m.started)) + "\n")
	sb.WriteString(MetricLabel.Render("batch time") + Sparkline(m.durations, barWidth) + "\n")

	if m.err != nil {
		sb.WriteString("\n" + StatusFailed.Render(m.err.Error()) + "\n")
	}
	if !m.finished {
		sb.WriteString("\n" + KeyHint.Render("q: cancel"))
	}
	return Panel.Render(sb.String())
}

// Observer forwards sampler reports to a running program.
func Observer(p *tea.Program) sampler.Observer {
	return sampler.ObserverFunc(func(r sampler.BatchReport) {
		p.Send(BatchMsg(r))
	})
}

// RunProgress runs job on its own goroutine while the progress view renders.
// Quitting the view cancels the context passed to job.
func RunProgress(ctx context.Context, title string, total int, job func(ctx context.Context, obs sampler.Observer) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(title, total, cancel))

	go func() {
		p.Send(DoneMsg{Err: job(ctx, Observer(p))})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	return final.(ProgressModel).Err()
}
