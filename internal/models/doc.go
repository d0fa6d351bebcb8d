// Package models defines the core domain models for splitbill.
//
// # Models
//
//   - Bill: a saved split session (items, participants, additional charges)
//   - Item: a priced line item assigned to one or more participants
//   - Participant: a person sharing the bill, identified by an ID local to the bill
//   - User: a registered account that owns bills
//   - ReceiptItem: a sanitized line item detected on a scanned receipt
//
// # Design Principles
//
//  1. Relationships use ID strings, never pointers (Item.AssignedTo holds participant IDs)
//  2. Participants are not users; a bill's people are just names scoped to that bill
//  3. Amounts are float64 in whole currency units (IDR); rounding happens only at display time
package models
