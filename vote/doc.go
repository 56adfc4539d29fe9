// Package vote holds the per-round vote acceptance state machine.
//
// It provides:
//   - Normalize: maps free-text chat replies ("2", "!answer b", "B") onto one
//     of the answer labels A-D.
//   - Guard: the two dedup ledgers. A session-wide message-id registry that
//     survives round resets (entries expire after a TTL) and a per-round
//     content signature keyed by a one second time bucket.
//   - Round: the open/closed voting window with one accepted vote per voter
//     identity. AcceptVote is the single serialization point for every
//     ingestion source; Open, Close and Reset are ordered against it by the
//     same mutex.
//
// Rejections are ordinary results (a Reason), never errors.
package vote
