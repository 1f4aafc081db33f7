package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/koneque/marketplace-escrow/pkg/amount"
)

type submission struct {
	outcome Outcome
	apply   func() bool
	sent    bool
}

// Memory is an in-process token ledger for local runs and tests. Broadcast
// transactions confirm immediately unless held or marked for rejection.
type Memory struct {
	mu          sync.Mutex
	operator    string
	balances    map[string]amount.Amount
	allowances  map[string]map[string]amount.Amount
	submissions map[string]*submission
	seq         uint64
	hold        bool
	rejectNext  int
	failNext    int
	failApplied bool
	broadcasts  int
}

// NewMemory creates a ledger whose transfers are sent by operator.
func NewMemory(operator string) *Memory {
	return &Memory{
		operator:    operator,
		balances:    make(map[string]amount.Amount),
		allowances:  make(map[string]map[string]amount.Amount),
		submissions: make(map[string]*submission),
	}
}

var _ TokenLedger = (*Memory)(nil)
var _ Confirmer = (*Memory)(nil)

// Mint credits owner out of thin air.
func (m *Memory) Mint(owner string, v amount.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[owner], _ = m.balances[owner].Add(v)
}

// SetAllowance records an approval made by owner.
func (m *Memory) SetAllowance(owner, spender string, v amount.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setAllowance(owner, spender, v)
}

// HoldSubmissions leaves new submissions pending until Resolve is called.
func (m *Memory) HoldSubmissions(hold bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hold = hold
}

// RejectNext makes the next n submissions revert.
func (m *Memory) RejectNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectNext = n
}

// FailBroadcasts makes the next n broadcasts return an error. With applied
// set the transaction still reaches the ledger, as when an RPC times out
// after the node accepted it.
func (m *Memory) FailBroadcasts(n int, applied bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
	m.failApplied = applied
}

// Broadcasts counts Broadcast calls, resends included.
func (m *Memory) Broadcasts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.broadcasts
}

// Resolve settles a held submission. Confirming applies its effect, which
// may still revert if balances changed meanwhile.
func (m *Memory) Resolve(txHash string, outcome Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[txHash]
	if !ok {
		return fmt.Errorf("unknown submission %s", txHash)
	}
	if !sub.sent || sub.outcome != Pending {
		return fmt.Errorf("submission %s already %s", txHash, sub.outcome)
	}
	if outcome == Confirmed && !sub.apply() {
		outcome = Rejected
	}
	sub.outcome = outcome
	return nil
}

func (m *Memory) BalanceOf(_ context.Context, owner string) (amount.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[owner], nil
}

func (m *Memory) Allowance(_ context.Context, owner, spender string) (amount.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowances[owner][spender], nil
}

func (m *Memory) SignTransferFrom(_ context.Context, from, to string, v amount.Amount) (Signed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sign(func() bool {
		allowed := m.allowances[from][m.operator]
		if allowed.LessThan(v) || !m.move(from, to, v) {
			return false
		}
		rest, _ := allowed.Sub(v)
		m.setAllowance(from, m.operator, rest)
		return true
	}), nil
}

func (m *Memory) SignTransfer(_ context.Context, to string, v amount.Amount) (Signed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sign(func() bool { return m.move(m.operator, to, v) }), nil
}

func (m *Memory) SignApprove(_ context.Context, spender string, v amount.Amount) (Signed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sign(func() bool {
		m.setAllowance(m.operator, spender, v)
		return true
	}), nil
}

// Broadcast applies a signed transaction once; resending it is a no-op.
func (m *Memory) Broadcast(_ context.Context, tx Signed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts++
	sub, ok := m.submissions[tx.Hash]
	if !ok {
		return fmt.Errorf("unknown transaction %s", tx.Hash)
	}
	if sub.sent {
		return nil
	}
	if m.failNext > 0 {
		m.failNext--
		if !m.failApplied {
			return fmt.Errorf("broadcast %s: connection reset", tx.Hash)
		}
		m.include(sub)
		return fmt.Errorf("broadcast %s: context deadline exceeded", tx.Hash)
	}
	m.include(sub)
	return nil
}

func (m *Memory) Abandon(tx Signed) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.submissions[tx.Hash]; ok && !sub.sent {
		delete(m.submissions, tx.Hash)
	}
}

func (m *Memory) Status(_ context.Context, txHash string) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[txHash]
	if !ok {
		return Pending, nil
	}
	return sub.outcome, nil
}

// sign must be called with m.mu held.
func (m *Memory) sign(apply func() bool) Signed {
	m.seq++
	hash := fmt.Sprintf("0x%064x", m.seq)
	m.submissions[hash] = &submission{outcome: Pending, apply: apply}
	return Signed{Hash: hash, Raw: hash}
}

// include must be called with m.mu held.
func (m *Memory) include(sub *submission) {
	sub.sent = true
	switch {
	case m.rejectNext > 0:
		m.rejectNext--
		sub.outcome = Rejected
	case m.hold:
	case sub.apply():
		sub.outcome = Confirmed
	default:
		sub.outcome = Rejected
	}
}

func (m *Memory) move(from, to string, v amount.Amount) bool {
	rest, err := m.balances[from].Sub(v)
	if err != nil {
		return false
	}
	credited, err := m.balances[to].Add(v)
	if err != nil {
		return false
	}
	m.balances[from] = rest
	m.balances[to] = credited
	return true
}

func (m *Memory) setAllowance(owner, spender string, v amount.Amount) {
	if m.allowances[owner] == nil {
		m.allowances[owner] = make(map[string]amount.Amount)
	}
	m.allowances[owner][spender] = v
}
