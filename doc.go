// Package settings is the durable-configuration core of a time-tracking
// browser extension: a flat key/value namespace with default fallback and
// legacy-format tolerance, persisted through an external synchronized
// backend.
//
// Responsibilities:
//   - Backend only reads/writes raw values for string keys; the store trusts
//     it to synchronize across devices and treats it as last-writer-wins.
//   - Store owns the recognized keys and their defaults, materializes
//     defaults into the backend on first load, and serializes read-modify-
//     write sequences per key so shared mappings cannot lose updates inside
//     one process.
//   - Gate evaluators compile small boolean rules (expr, CEL, or JavaScript)
//     that downstream dispatchers use to decide whether a side-effecting
//     host callback should run after a mutation.
//
// Data flow:
//
//	Backend -> Store -> {dispatch.Dispatcher, origins.Resolver, project.Resolver}
//
// Cross-process writes remain last-writer-wins; the backend contract offers
// no conditional write, so Store.Mutate documents rather than hides that
// limit.
package settings
