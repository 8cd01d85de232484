// Package scoring accumulates interaction signals on captured items and
// ranks due recalls for the spotlight surface.
//
// Weights are fixed: a qualified visibility span is worth 1, an explicit
// open 5, and a newly related pair 10 to each side. Edits are counted as
// signals but carry no weight.
package scoring
