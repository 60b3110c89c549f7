// Package engine matches incoming orders against resting liquidity and
// settles the result atomically.
//
// Matching (Match) and position accounting (applyFill) are pure functions;
// Engine.SubmitOrder wraps them in one per-(market, side) critical section
// backed by a storage transaction, so a matching pass either commits in full
// (trades, resting-order fills, position, volume, leftover order) or not at
// all.
package engine
