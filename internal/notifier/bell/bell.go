// Package bell writes an audible terminal alert for confirmed signals.
package bell

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/newthinker/orion/internal/config"
	"github.com/newthinker/orion/internal/core"
	"github.com/newthinker/orion/internal/format"
)

// Bell rings the terminal bell and prints a one-line summary.
type Bell struct {
	mu  sync.Mutex
	out io.Writer
}

// New creates a bell notifier writing to out, or stdout when nil.
func New(out io.Writer) *Bell {
	if out == nil {
		out = os.Stdout
	}
	return &Bell{out: out}
}

func (b *Bell) Name() string { return "bell" }

func (b *Bell) Init(cfg config.NotifierConfig) error {
	if b.out == nil {
		b.out = os.Stdout
	}
	return nil
}

func (b *Bell) Send(ctx context.Context, s core.Signal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line := fmt.Sprintf("\a%s %s %s %s @ %s conf %s\n",
		format.Clock(s.EntryTime),
		strings.ToUpper(string(s.Status)),
		s.Symbol,
		strings.ToUpper(string(s.Direction)),
		format.Price(s.Symbol, s.EntryPrice),
		format.Percent(s.Confidence),
	)

	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := io.WriteString(b.out, line)
	return err
}
