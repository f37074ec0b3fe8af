// Package models defines the core domain models for the chit fund ledger.
//
// # Models
//
//   - Chit: a pooled fixed-installment plan with its running balance
//   - Slot: one installment-sized share of a chit, assignable to a user
//   - SubSlot: a claim on a split slot
//   - User: a registered member, identified by their number
//
// # Design Principles
//
// 1. **Integer money**: all amounts are whole currency units (int64)
// 2. **Documents, not rows**: a chit and its slots are read and written as one unit
// 3. **IDs from counters**: chit and user IDs come from named sequence counters,
//    never from the store's own key generation
package models
