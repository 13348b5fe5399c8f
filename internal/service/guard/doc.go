// Package guard filters collected resource entries that point back into the
// pipeline's own prior output, preventing unbounded self-copying when a run
// is repeated against a stale output tree. The filter always runs; it is a
// correctness requirement, not an optimization.
package guard
