// Package assembler creates the canonical bundle layout — an executable
// area and a resources area under Contents/ — and copies the upstream
// build artifact and collected resources into it. The executable artifact
// is mandatory and aborts the run on failure; individual resource copies
// are best-effort.
package assembler
