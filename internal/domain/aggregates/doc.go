// Package aggregates defines the write boundaries that keep the relational
// mirror consistent with on-chain state.
//
// Each aggregate write applies a reconciled effect and clears its pending
// transaction marker in one database transaction. Persistence details live in
// internal/data/aggregates.
package aggregates
