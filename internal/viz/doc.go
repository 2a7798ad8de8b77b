// Package viz renders run progress and summaries in the terminal.
//
//   - [ProgressModel]: Bubble Tea view fed one message per finished batch
//   - [RunProgress]: runs a job on its own goroutine while the view renders
//   - [Summary], [MetricsTable]: lipgloss-styled key/value blocks for the CLI
//
// # Key Bindings
//
//	Q / Ctrl+C - cancel the run; no artifact is written
package viz
