// Package waterfall computes recall timestamps for captured content.
//
// Every item walks a fixed stage machine:
//
//	New -> R1 -> R2 -> R3 -> R4 -> R5 -> Terminated
//
// Each transition yields exactly one slot, offset from the item's origin
// (its capture time). The first three transitions form the capture
// waterfall and are planned unconditionally for substantial content. The
// last three form the bookmark extension and are only planned when the
// item was bookmarked inside the validity window.
//
// The package is pure: it never reads the clock and never fails.
// Ineligible input yields an empty plan.
package waterfall
