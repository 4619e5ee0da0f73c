// Package logger is the sync run's event log.
package logger

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Logger receives the events of one sync run.
type Logger interface {
	Upload(src, dst string, size int64)
	Delete(dst string)
	Error(operation, target string, err error)
	Debug(msg string)
	Summary(line string, bytesUploaded int64, duration time.Duration)
}

// SyncLogger writes events through zerolog.
type SyncLogger struct {
	zlog   zerolog.Logger
	dryRun bool
}

var _ Logger = (*SyncLogger)(nil)

// New returns a SyncLogger writing human-readable lines to w. With quiet
// only warnings and errors are written.
func New(w io.Writer, quiet bool) *SyncLogger {
	level := zerolog.InfoLevel
	if quiet {
		level = zerolog.WarnLevel
	}
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	return &SyncLogger{
		zlog: zerolog.New(console).Level(level).With().Timestamp().Logger(),
	}
}

// DryRun returns a copy that marks every event as not performed.
func (l *SyncLogger) DryRun() *SyncLogger {
	return &SyncLogger{zlog: l.zlog.With().Bool("dryrun", true).Logger(), dryRun: true}
}

func (l *SyncLogger) Upload(src, dst string, size int64) {
	l.zlog.Info().
		Str("src", src).
		Str("dst", dst).
		Str("size", formatBytes(size)).
		Msg(l.verb("upload"))
}

func (l *SyncLogger) Delete(dst string) {
	l.zlog.Info().Str("dst", dst).Msg(l.verb("delete"))
}

func (l *SyncLogger) Error(operation, target string, err error) {
	l.zlog.Error().Err(err).Str("op", operation).Str("target", target).Msg("failed")
}

func (l *SyncLogger) Debug(msg string) {
	l.zlog.Debug().Msg(msg)
}

// Summary is logged at warn so it survives --quiet.
func (l *SyncLogger) Summary(line string, bytesUploaded int64, duration time.Duration) {
	l.zlog.Warn().
		Str("bytes", formatBytes(bytesUploaded)).
		Dur("duration", duration.Round(time.Millisecond)).
		Msg(line)
}

func (l *SyncLogger) verb(action string) string {
	if l.dryRun {
		return "(dryrun) " + action
	}
	return action
}

type NullLogger struct{}

var _ Logger = NullLogger{}

func (NullLogger) Upload(src, dst string, size int64) {}
func (NullLogger) Delete(dst string) {}
func (NullLogger) Error(operation, target string, err error) {}
func (NullLogger) Debug(msg string) {}
func (NullLogger) Summary(line string, bytesUploaded int64, duration time.Duration) {}

// formatBytes formats bytes in human readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
