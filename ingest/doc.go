// Package ingest feeds chat submissions from external platforms into a vote round.
//
// Each platform listener implements Source. Sources run concurrently under a
// supervisor that restarts them according to the class of the error they
// returned, and push submissions into a Dispatcher: a bounded buffer drained by
// a single goroutine that calls Round.AcceptVote. Submissions arriving while
// the buffer is full are dropped and counted, never blocking a listener.
package ingest
