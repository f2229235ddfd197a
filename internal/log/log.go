package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// InitLogger sets up Apex with a custom handler writing to stderr and a log
// level from the RHSCACHE_LOG env variable.
func InitLogger() {
	level := strings.ToUpper(os.Getenv("RHSCACHE_LOG"))
	if level == "" {
		level = "ERROR"
	}
	log.SetHandler(NewHandler(os.Stderr))
	log.SetLevelFromString(level)
}

// Handler formats log entries as a single line: timestamp, level letter,
// message and sorted fields.
type Handler struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewHandler returns a Handler writing to w.
func NewHandler(w io.Writer) *Handler {
	return &Handler{w: w, now: time.Now}
}

// HandleLog implements the log.Handler interface
func (h *Handler) HandleLog(e *log.Entry) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1s %s", h.now().Format("2006-01-02 15:04:05"),
		strings.ToUpper(e.Level.String()), e.Message)
	for _, name := range e.Fields.Names() {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields.Get(name))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())

	return err
}
