// Package persona holds the immutable NPC persona configuration: descriptors,
// the static registry resolved by id, and the builtin workplace personas.
// Registration happens once at process start; the registry is read-only after
// that and needs no locking on the resolve path.
package persona
