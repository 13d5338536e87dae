// Package ir provides the canonical intermediate representation consumed by
// the code generator.
//
// The IR is owned by an external model builder (out of scope for this
// module); this package holds only the type definitions and read-only
// helpers (validation, canonical hashing) that the generator needs. Nothing
// in this package mutates a Network after construction.
//
// Key design constraints:
//   - The IR is immutable during generation; every method here takes a
//     Network by value or read-only pointer and never writes through it.
//   - Ordering (of NeuronGroups and SynapseGroups) is significant and is
//     preserved verbatim wherever the IR is walked (determinism, CP-style).
package ir
