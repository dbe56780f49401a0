// Package models defines the core domain models for the BuildMandi
// settlement backend.
//
// # Models
//
//   - Order: the settlement-relevant subset of a marketplace order
//   - Settlement: a batched payout aggregating a vendor's completed,
//     unpaid orders
//   - StatusHistoryEntry: one append-only audit record per lifecycle
//     transition
//   - Operator: a back-office user driving settlement operations
//
// # Design Principles
//
// 1. **Exact money**: all monetary fields are decimal.Decimal, never float
// 2. **Avoid circular references**: relationships are ID strings, not pointers
// 3. **Typed failures**: every recoverable failure the settlement flow can
// produce is a distinct error type so callers can branch on it
package models
