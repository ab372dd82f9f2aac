// Package ledger holds the raw transaction types the analysis engine
// consumes. It has no dependency on the engine, the API, or any
// storage backend.
package ledger

// AcctID identifies an account. Accounts are never created explicitly;
// they come into existence the first time they appear as a sender or
// receiver.
type AcctID string

// EpochMs is a millisecond Unix timestamp.
type EpochMs int64

// Transaction is a single directed monetary transfer between two
// accounts. Sender and Receiver may be equal (a self-loop); self-loops
// never participate in cycle or layering detection.
type Transaction struct {
	TxID     string
	Sender   AcctID
	Receiver AcctID
	Amount   Money
	Ts       EpochMs
}
