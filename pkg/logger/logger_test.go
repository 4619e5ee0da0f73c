package logger

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gitlab.com/tozd/go/errors"
)

func TestSyncLogger(t *testing.T) {
	tests := []struct {
		name    string
		quiet   bool
		dryRun  bool
		op      func(l *SyncLogger)
		want    []string
		notWant []string
	}{
		{
			name: "upload",
			op:   func(l *SyncLogger) { l.Upload("https://example.com/a.txt", "s3://bucket/p/a.txt", 2048) },
			want: []string{"upload", "src=https://example.com/a.txt", "dst=s3://bucket/p/a.txt", "2.0 KB"},
		},
		{
			name:   "dryrun delete",
			dryRun: true,
			op:     func(l *SyncLogger) { l.Delete("s3://bucket/p/old.txt") },
			want:   []string{"(dryrun) delete", "dst=s3://bucket/p/old.txt", "dryrun=true"},
		},
		{
			name:    "quiet hides transfers",
			quiet:   true,
			op:      func(l *SyncLogger) { l.Upload("src", "dst", 1) },
			notWant: []string{"upload"},
		},
		{
			name:  "quiet keeps errors",
			quiet: true,
			op:    func(l *SyncLogger) { l.Error("upload", "s3://bucket/a", errors.New("boom")) },
			want:  []string{"failed", "op=upload", "boom"},
		},
		{
			name:  "quiet keeps summary",
			quiet: true,
			op: func(l *SyncLogger) {
				l.Summary("sync: source=2 dest=1 uploaded=2 deleted=1", 10, time.Second)
			},
			want: []string{"sync: source=2 dest=1 uploaded=2 deleted=1", "bytes=\"10 B\""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&buf, tt.quiet)
			if tt.dryRun {
				l = l.DryRun()
			}
			tt.op(l)

			out := buf.String()
			for _, s := range tt.want {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.in))
	}
}
