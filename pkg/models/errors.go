package models

import "errors"

// Domain error taxonomy. Callers classify with errors.Is; every layer wraps
// with fmt.Errorf("...: %w", err).
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidState          = errors.New("invalid state")
	ErrNotFound              = errors.New("not found")
	ErrAlreadyLocked         = errors.New("escrow already locked")
	ErrAlreadyReleased       = errors.New("escrow already released")
	ErrAlreadyInactive       = errors.New("listing already inactive")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrCodeExpired           = errors.New("referral code expired")
	ErrCodeExhausted         = errors.New("referral code exhausted")
	ErrAlreadyReferred       = errors.New("address already referred")
	ErrAlreadyExists         = errors.New("already exists")
	ErrConflict              = errors.New("concurrent modification")
	ErrLedgerRejected        = errors.New("ledger rejected submission")
	ErrLedgerPending         = errors.New("ledger submission pending")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidInput, "InvalidInput"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrInvalidState, "InvalidState"},
	{ErrNotFound, "NotFound"},
	{ErrAlreadyLocked, "AlreadyLocked"},
	{ErrAlreadyReleased, "AlreadyReleased"},
	{ErrAlreadyInactive, "AlreadyInactive"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrInsufficientAllowance, "InsufficientAllowance"},
	{ErrCodeExpired, "CodeExpired"},
	{ErrCodeExhausted, "CodeExhausted"},
	{ErrAlreadyReferred, "AlreadyReferred"},
	{ErrAlreadyExists, "AlreadyExists"},
	{ErrConflict, "Conflict"},
	{ErrLedgerRejected, "LedgerRejected"},
	{ErrLedgerPending, "LedgerPending"},
}

// Kind returns the stable name of the first taxonomy error err wraps, or
// "Internal".
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}

// PendingError reports a ledger submission that was broadcast but not yet
// confirmed. It matches ErrLedgerPending.
type PendingError struct {
	TransactionID uint64
	TxHash        string
}

func (e *PendingError) Error() string {
	return "ledger submission " + e.TxHash + " pending"
}

func (e *PendingError) Is(target error) bool {
	return target == ErrLedgerPending
}
