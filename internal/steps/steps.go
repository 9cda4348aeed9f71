// Package steps is the observational step ledger: the ordered milestone list
// for one settlement attempt, announced up-front and completed one at a time.
// It is never read back into protocol decisions.
package steps

import (
	"fmt"
	"sync"
)

// Milestone names. Consumers must treat unknown names as no-ops, so new
// milestones can be added without breaking them.
const (
	IntentAccepted   = "INTENT_ACCEPTED"
	RequestSigned    = "REQUEST_SIGNED"
	RequestSubmitted = "REQUEST_SUBMITTED"
	IntentFulfilled  = "INTENT_FULFILLED"
)

// PermitStep names the sponsored-permit milestone for a source network.
func PermitStep(networkID uint64) string {
	return fmt.Sprintf("ALLOWANCE_PERMIT_%d", networkID)
}

// ApprovalStep names the on-chain-approval milestone for a source network.
func ApprovalStep(networkID uint64) string {
	return fmt.Sprintf("ALLOWANCE_APPROVAL_%d", networkID)
}

// DepositStep names the vault-deposit milestone for a native source.
func DepositStep(networkID uint64) string {
	return fmt.Sprintf("DEPOSIT_%d", networkID)
}

// CollectionStep names the relay-collection milestone for a source network.
func CollectionStep(networkID uint64) string {
	return fmt.Sprintf("COLLECTION_%d", networkID)
}

// Event is one observer notification.
type Event struct {
	// Expected carries the full milestone list, sent once before any
	// completion.
	Expected []string
	// Completed names a single finished milestone.
	Completed string
}

// Observer receives ledger events in order.
type Observer func(Event)

// Ledger tracks milestone completion for one attempt.
type Ledger struct {
	mu       sync.Mutex
	order    []string
	done     map[string]bool
	observer Observer
}

// New builds a ledger over the expected milestones and announces them to the
// observer immediately.
func New(expected []string, observer Observer) *Ledger {
	l := &Ledger{
		order:    append([]string(nil), expected...),
		done:     make(map[string]bool, len(expected)),
		observer: observer,
	}
	if observer != nil {
		observer(Event{Expected: l.Expected()})
	}
	return l
}

// Expected returns the announced milestone list.
func (l *Ledger) Expected() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

// Complete marks a milestone done and notifies the observer. Unknown or
// repeated names are ignored: the ledger observes, it never gates.
func (l *Ledger) Complete(name string) {
	l.mu.Lock()
	known := false
	for _, n := range l.order {
		if n == name {
			known = true
			break
		}
	}
	if !known || l.done[name] {
		l.mu.Unlock()
		return
	}
	l.done[name] = true
	observer := l.observer
	l.mu.Unlock()

	if observer != nil {
		observer(Event{Completed: name})
	}
}

// Done reports whether a milestone completed.
func (l *Ledger) Done(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done[name]
}
