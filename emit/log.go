package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// LogEmitter writes events as text or JSON lines to an io.Writer. When
// writing text to a terminal (detected via go-isatty) it colorizes the
// node id for readability; JSON mode is always plain, for log pipelines.
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
	isTTY    bool
}

// NewLogEmitter wraps writer. fd is the file descriptor used to detect
// whether writer is a terminal (pass ^uintptr(0) when writer isn't backed
// by an *os.File, e.g. in tests).
func NewLogEmitter(writer io.Writer, jsonMode bool, fd uintptr) *LogEmitter {
	return &LogEmitter{
		writer:   writer,
		jsonMode: jsonMode,
		isTTY:    !jsonMode && isatty.IsTerminal(fd),
	}
}

func (l *LogEmitter) Emit(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.jsonMode {
		data, err := json.Marshal(e)
		if err != nil {
			fmt.Fprintf(l.writer, "emit: marshal error: %v\n", err)
			return
		}
		fmt.Fprintln(l.writer, string(data))
		return
	}
	node := e.NodeID
	if l.isTTY && node != "" {
		node = "\x1b[36m" + node + "\x1b[0m"
	}
	if node == "" {
		fmt.Fprintf(l.writer, "[%s] step=%s %s\n", humanize.Time(e.At), humanize.Comma(int64(e.Step)), e.Msg)
		return
	}
	fmt.Fprintf(l.writer, "[%s] step=%s node=%s %s\n", humanize.Time(e.At), humanize.Comma(int64(e.Step)), node, e.Msg)
}

func (l *LogEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		l.Emit(e)
	}
	return nil
}

func (l *LogEmitter) Flush(context.Context) error { return nil }
