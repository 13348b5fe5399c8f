// Package pipeline orchestrates one packaging run: it claims an advisory
// run lock, cleans stale outputs, collects and guard-filters resources,
// waits for the upstream build artifact, assembles the bundle tree in a
// staging area, normalizes helper permissions, writes the descriptor,
// publishes the tree with a single rename, and best-effort signs and images
// the result. Data flows strictly one way between stages through an
// explicit state value; the run is single-threaded and one-shot.
package pipeline
