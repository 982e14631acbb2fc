package server

import (
	"context"
	"log/slog"
	"sync"
)

// Pipeline steps a session can hand control to.
const (
	StepUpload   = "upload"
	StepFinalize = "finalize"
)

// Navigation records where the editor sent the user.
type Navigation struct {
	// Step is StepUpload or StepFinalize.
	Step string `json:"step"`

	// Slot is the committed result slot for StepFinalize.
	Slot string `json:"slot,omitempty"`

	// Reason explains a redirect to StepUpload.
	Reason string `json:"reason,omitempty"`
}

// navigator reports session navigation to the MCP client. The client drives
// the neighbouring steps, so navigation is recorded and surfaced in tool
// results rather than performed.
type navigator struct {
	logger *slog.Logger

	mu   sync.Mutex
	last *Navigation
}

func newNavigator(logger *slog.Logger) *navigator {
	return &navigator{logger: logger}
}

func (n *navigator) RedirectToUpload(_ context.Context, reason error) {
	nav := &Navigation{Step: StepUpload}
	if reason != nil {
		nav.Reason = reason.Error()
	}
	n.logger.Info("navigate", "step", StepUpload, "reason", nav.Reason)
	n.set(nav)
}

func (n *navigator) Finalize(_ context.Context, slot string) error {
	n.logger.Info("navigate", "step", StepFinalize, "slot", slot)
	n.set(&Navigation{Step: StepFinalize, Slot: slot})
	return nil
}

func (n *navigator) set(nav *Navigation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = nav
}

// take returns and clears the pending navigation.
func (n *navigator) take() *Navigation {
	n.mu.Lock()
	defer n.mu.Unlock()
	nav := n.last
	n.last = nil
	return nav
}
