// Package engines contains implementations of the speech synthesis
// capability: Piper (offline subprocess), a remote HTTP speech server, and a
// deterministic tone generator for tests and dry runs.
package engines
