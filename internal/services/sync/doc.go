// Package sync orchestrates a full upload run: scan the library, filter
// against the ledger, fingerprint and transfer each surviving asset, and
// record every outcome durably.
//
// # Phases
//
// A run moves through scanning → filtering → uploading and ends in complete,
// failed, or back in idle after cancellation. Scanning and filtering are
// sequential; the fingerprint+transfer step runs on a bounded worker pool.
// Only one run may be active per process.
//
// # Safety
//
// The ledger is the only correctness mechanism. Its ID gate (filtering) and
// fingerprint gate (pre-transfer) are both consulted, and any gate read error
// fails closed: the asset is skipped, never uploaded. The checkpoint merely
// lets a resumed run skip filtering work it already finished; losing it costs
// time, not correctness.
//
// # Concurrency
//
// Workers handle materialize/fingerprint/transfer only. All counters,
// checkpoint saves and the summary live with the coordinator, which drains a
// results channel; workers never touch the checkpoint artifact.
package sync
