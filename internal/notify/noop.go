package notify

import (
	"context"

	"assetledger/internal/core"
)

// Noop discards notifications and log lines.
type Noop struct{}

func (Noop) Publish(context.Context, []core.Notification) error { return nil }

func (Noop) Debug(string, ...any) {}
func (Noop) Info(string, ...any)  {}
func (Noop) Warn(string, ...any)  {}
func (Noop) Error(string, ...any) {}
