package notifier

import (
	"context"

	"github.com/newthinker/orion/internal/config"
	"github.com/newthinker/orion/internal/core"
)

// Notifier delivers confirmed signals to an external channel.
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init applies configuration and checks required fields
	Init(cfg config.NotifierConfig) error

	// Send delivers a single signal. Implementations must honour ctx.
	Send(ctx context.Context, signal core.Signal) error
}
