// Package cli provides the snapsync command-line client.
//
// It wires configuration, the SQLite ledger, the checkpoint store, the local
// library and the media server client into an App that dispatches
// subcommands. Typical flow: 'snapsync login' once, then 'snapsync sync' per
// session, with 'snapsync resume' after an interruption.
//
// Commands:
//   - sync / resume — run the upload pipeline (optionally from a checkpoint)
//   - status        — ledger counts, checkpoint state, credential presence
//   - reconcile     — diff the ledger against the server, store conflicts
//   - resolve       — apply a decision to a pending conflict
//   - login / logout — store or remove the API key
//   - reset / flush — ledger maintenance
//
// Dispatch happens via App.Run(ctx, cmd, args); ExtractCommand splits the
// subcommand from the global configuration flags.
package cli
