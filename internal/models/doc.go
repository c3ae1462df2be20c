// Package models defines the core domain models for Tallyup.
//
// # Models
//
//   - Bill: a shared-expense record with a total, a currency, and the
//     per-participant amounts owed
//   - BillParticipant: one person's resolved share of a bill
//   - Contact: a saved address-book entry for quickly re-adding people
//   - User: a registered account that owns bills and contacts
//
// # Design Principles
//
//  1. Models are plain data: all allocation math lives in the allocation
//     package, all persistence in the storage package
//  2. Relationships use ID strings, never pointers, to avoid circular
//     references
//  3. Amounts are decimal.Decimal — bill math must be exact to the minor
//     unit of the currency, so floats are never used for money
//  4. Timestamps are Unix seconds
package models
