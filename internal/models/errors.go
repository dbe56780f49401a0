package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for failures that carry no extra data.
var (
	// ErrEmptySelection is returned when a claim is attempted with zero
	// orders. Rejected before any transaction begins.
	ErrEmptySelection = errors.New("settlement requires at least one order")

	// ErrMissingPayoutReference is returned when a transition that
	// requires an external transaction reference is attempted without one.
	ErrMissingPayoutReference = errors.New("external transaction reference is required")

	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")
)

// StaleSelectionError reports that one or more selected orders became
// ineligible between listing and claiming (claimed concurrently, or their
// status changed). The whole claim aborts; the operator must re-query and
// re-select.
type StaleSelectionError struct {
	OrderIDs []string
}

func (e *StaleSelectionError) Error() string {
	return fmt.Sprintf("orders no longer eligible: %s", strings.Join(e.OrderIDs, ", "))
}

// VendorMismatchError reports that a selected order does not belong to the
// stated vendor (or does not exist). No partial claim occurs.
type VendorMismatchError struct {
	OrderID  string
	VendorID string
}

func (e *VendorMismatchError) Error() string {
	return fmt.Sprintf("order %s does not belong to vendor %s", e.OrderID, e.VendorID)
}

// InvalidTransitionError reports a lifecycle transition requested from a
// status that does not permit it. The settlement is left unchanged.
type InvalidTransitionError struct {
	From SettlementStatus
	To   SettlementStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition settlement from %s to %s", e.From, e.To)
}
