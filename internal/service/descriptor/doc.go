// Package descriptor renders the bundle's metadata file — the structured
// key/value document the host OS shell reads to identify and launch the
// application. Rendering is deterministic for equal input so repeated
// builds produce byte-identical descriptors.
package descriptor
