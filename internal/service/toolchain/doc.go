// Package toolchain shells out to the optional signing and disk-image
// utilities through a typed, argument-list process runner. Both tools are
// best-effort collaborators: developer machines may lack them, so callers
// treat failures as warnings rather than run failures.
package toolchain
