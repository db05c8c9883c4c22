// Package aggregates implements the domain aggregate contracts on top of the
// table repos in internal/data/repos. Every write runs inside one transaction
// that both applies the reconciled effect and clears the pending marker.
package aggregates
