// Package models defines the core domain models for the attendance ledger.
//
// The central entities:
//   - Member: one roster participant (stable id + display name, roster-ordered)
//   - AttendanceEvent: one append-only ledger entry (credit or duplicate marker)
//   - MatrixRow: one day's presence/absence/excused vector, one mark per member
//   - Balance: one member's settled amount for a period
//
// # Design principles
//
//  1. The ledger and the fingerprint index are keyed by the stable member id,
//     never by display name. Display names are resolved to ids at the service
//     boundary, so two members sharing a name cannot silently merge records.
//  2. Matrix rows carry their calendar day explicitly. Row position is never
//     used to infer a date.
//  3. Events are immutable once written; nothing compacts or rewrites them.
package models
