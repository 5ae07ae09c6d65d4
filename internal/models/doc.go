// Package models defines the core domain models for the expense tracker.
//
// # Models
//
//   - User: registered account; owns expenses, budgets and group memberships
//   - Expense: a spend record, optionally attached to a group with a split
//   - Budget: a per-category (or overall) spending limit over a time window,
//     carrying alert state for threshold notifications
//   - Group: a set of users who share expenses
//   - SplitShare: one participant's owed portion of a group expense
//   - DebtEntry: the net pending debt between two users
//   - Settlement: a recorded payment that reduces a debt
//
// # Conventions
//
//  1. IDs are UUID strings, assigned by the storage layer on create.
//  2. Timestamps are Unix seconds.
//  3. Monetary amounts are decimal.Decimal; float arithmetic on money is
//     never permitted.
//  4. Relationships use ID strings instead of pointers to avoid circular
//     references.
package models
