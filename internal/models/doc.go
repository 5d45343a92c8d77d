// Package models defines the core domain models for duoledger.
//
// The service tracks a two-person household: users chat, messages are
// classified (task / expense / payment / normal), and the ledger of tasks,
// expenses and debts is updated accordingly.
//
//   - User: a registered account; every other entity references user IDs.
//   - Message: a chat message, carrying its classification once attached.
//   - Classification: the inferred intent of a message (closed variant).
//   - Task: a household chore or purchase to be done.
//   - Expense: money spent completing a task.
//   - Debt: the other user's share of an expense, settled oldest-first.
//
// Money is decimal.Decimal throughout; float arithmetic is never used for
// amounts. Timestamps are Unix seconds. Relationships use ID strings rather
// than pointers to avoid circular references.
package models
