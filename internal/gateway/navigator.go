package gateway

import (
	"context"
	"sync/atomic"

	"github.com/florianilch/authhelper/internal/session"
)

// PendingNavigator records the latest navigation request so the gateway can
// deliver it to the browser on the next page load.
type PendingNavigator struct {
	target atomic.Pointer[string]
}

// Compile-time check to ensure PendingNavigator implements session.Navigator
var _ session.Navigator = (*PendingNavigator)(nil)

// NewNavigator creates a PendingNavigator with nothing pending.
func NewNavigator() *PendingNavigator {
	return &PendingNavigator{}
}

// Navigate records target, replacing any earlier pending navigation.
func (n *PendingNavigator) Navigate(_ context.Context, target string) {
	n.target.Store(&target)
}

// Take returns and clears the pending navigation target.
func (n *PendingNavigator) Take() (string, bool) {
	p := n.target.Swap(nil)
	if p == nil {
		return "", false
	}
	return *p, true
}
