// Package gate is the publication state machine: the transition functions here
// are the only legal item-status mutators.
package gate

import (
	"fmt"
	"slices"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
)

// Source sets for each transition, used to scope bulk status updates.
var (
	ConfirmSources   = []constants.ItemStatus{constants.ItemCaptured, constants.ItemConfirmed}
	PublishSources   = []constants.ItemStatus{constants.ItemConfirmed, constants.ItemEnriched}
	UnpublishSources = []constants.ItemStatus{constants.ItemPublished}
	// A single-item enrich advances anything short of published, captured
	// included; only the batch path requires confirmation.
	EnrichSources    = []constants.ItemStatus{constants.ItemCaptured, constants.ItemConfirmed, constants.ItemEnriched}
)

// Confirm moves captured to confirmed. Confirming a confirmed item is a no-op.
func Confirm(from constants.ItemStatus) (constants.ItemStatus, error) {
	return transition("confirm", from, ConfirmSources, constants.ItemConfirmed)
}

// Publish moves confirmed or enriched items to published.
func Publish(from constants.ItemStatus) (constants.ItemStatus, error) {
	return transition("publish", from, PublishSources, constants.ItemPublished)
}

// Unpublish returns a published item to enriched.
func Unpublish(from constants.ItemStatus) (constants.ItemStatus, error) {
	return transition("unpublish", from, UnpublishSources, constants.ItemEnriched)
}

// MarkEnriched is the status after a successful enrichment. Published stays published.
func MarkEnriched(from constants.ItemStatus) constants.ItemStatus {
	if from == constants.ItemPublished {
		return from
	}
	return constants.ItemEnriched
}

// CanDelete is false only for published items.
func CanDelete(s constants.ItemStatus) bool {
	return s != constants.ItemPublished
}

func transition(name string, from constants.ItemStatus, sources []constants.ItemStatus, to constants.ItemStatus) (constants.ItemStatus, error) {
	if !slices.Contains(sources, from) {
		return from, fmt.Errorf("%w: cannot %s an item that is %s", common.ErrInvalidTransition, name, from)
	}
	return to, nil
}
