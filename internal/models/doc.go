// Package models defines the core domain models for the tontine service.
//
// # Models
//
//   - User: registered account, identified by phone number
//   - Tontine: a rotating savings group with a fixed contribution and round length
//   - Membership: a user's seat in a tontine (role, status, turn order)
//   - Payment: one member's contribution for one round
//   - Penalty: a fine applied to a member for a round
//   - ActivityEntry: append-only history line for a tontine
//
// # Design Principles
//
//  1. Relationships are ID strings, never pointers between models.
//  2. Money is decimal.Decimal; amounts are never float64.
//  3. Derived values (deadline, days left, overdue) are not stored on the models; they are
//     computed on demand by the calculator package from the model and the current time.
package models
