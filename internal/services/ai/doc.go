// Package ai hosts the task execution core: provider adapters with retry
// and sanitization, the task orchestrator, and the append-only usage ledger.
package ai
