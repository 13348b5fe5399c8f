// Package collector enumerates declared resource roots into an ordered
// sequence of bundle entries, applying name-prefix exclusion rules before
// any directory is descended into. Missing or unreadable sources are
// warned about and skipped; collection never aborts a run.
package collector
