package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/koneque/marketplace-escrow/pkg/amount"
	"github.com/koneque/marketplace-escrow/pkg/models"
)

var (
	selBalanceOf    = selector("balanceOf(address)")
	selAllowance    = selector("allowance(address,address)")
	selTransfer     = selector("transfer(address,uint256)")
	selTransferFrom = selector("transferFrom(address,address,uint256)")
	selApprove      = selector("approve(address,uint256)")
)

func selector(signature string) []byte {
	return gethcrypto.Keccak256([]byte(signature))[:4]
}

// EVMClient is the subset of the Ethereum RPC used by the ERC-20 ledger.
type EVMClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// DialEVMClient initialises an EVM RPC client for the provided endpoint.
func DialEVMClient(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("evm endpoint required")
	}
	return ethclient.Dial(trimmed)
}

// ERC20 implements TokenLedger and Confirmer against an ERC-20 contract. All
// writes are signed by the escrow operator key.
type ERC20 struct {
	client        EVMClient
	token         common.Address
	key           *ecdsa.PrivateKey
	operator      common.Address
	chainID       *big.Int
	confirmations uint64

	// nonces are reserved at signing so concurrent settlements do not
	// collide. Two transactions that do share a nonce can never both be mined.
	mu        sync.Mutex
	nextNonce *uint64
}

// NewERC20 builds a ledger for token signed by the hex-encoded private key.
func NewERC20(client EVMClient, token string, privateKeyHex string, chainID int64, confirmations uint64) (*ERC20, error) {
	if client == nil {
		return nil, fmt.Errorf("evm client required")
	}
	if !common.IsHexAddress(token) {
		return nil, fmt.Errorf("invalid token address %q", token)
	}
	key, err := gethcrypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse escrow private key: %w", err)
	}
	if chainID <= 0 {
		return nil, fmt.Errorf("chain id must be positive")
	}
	return &ERC20{
		client:        client,
		token:         common.HexToAddress(token),
		key:           key,
		operator:      gethcrypto.PubkeyToAddress(key.PublicKey),
		chainID:       big.NewInt(chainID),
		confirmations: confirmations,
	}, nil
}

var _ TokenLedger = (*ERC20)(nil)
var _ Confirmer = (*ERC20)(nil)

// Operator returns the checksummed address that signs transfers.
func (e *ERC20) Operator() string { return e.operator.Hex() }

func (e *ERC20) BalanceOf(ctx context.Context, owner string) (amount.Amount, error) {
	return e.call(ctx, pack(selBalanceOf, addressWord(owner)))
}

func (e *ERC20) Allowance(ctx context.Context, owner, spender string) (amount.Amount, error) {
	return e.call(ctx, pack(selAllowance, addressWord(owner), addressWord(spender)))
}

func (e *ERC20) SignTransferFrom(ctx context.Context, from, to string, v amount.Amount) (Signed, error) {
	return e.sign(ctx, pack(selTransferFrom, addressWord(from), addressWord(to), amountWord(v)))
}

func (e *ERC20) SignTransfer(ctx context.Context, to string, v amount.Amount) (Signed, error) {
	return e.sign(ctx, pack(selTransfer, addressWord(to), amountWord(v)))
}

func (e *ERC20) SignApprove(ctx context.Context, spender string, v amount.Amount) (Signed, error) {
	return e.sign(ctx, pack(selApprove, addressWord(spender), amountWord(v)))
}

// Broadcast sends a signed transaction. A node that already has it is not an
// error. A nonce consumed by a different transaction means this one can never
// be mined, which is reported as a rejection.
func (e *ERC20) Broadcast(ctx context.Context, s Signed) error {
	raw, err := hexutil.Decode(s.Raw)
	if err != nil {
		return fmt.Errorf("decode signed transaction %s: %w", s.Hash, err)
	}
	tx := new(gethtypes.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return fmt.Errorf("decode signed transaction %s: %w", s.Hash, err)
	}
	if tx.Hash().Hex() != s.Hash {
		return fmt.Errorf("signed transaction does not match hash %s", s.Hash)
	}

	err = e.client.SendTransaction(ctx, tx)
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already known"), strings.Contains(msg, "known transaction"):
		return nil
	case strings.Contains(msg, "nonce too low"):
		receipt, rerr := e.client.TransactionReceipt(ctx, tx.Hash())
		if rerr == nil && receipt != nil {
			return nil
		}
		if errors.Is(rerr, ethereum.NotFound) {
			e.resetNonce()
			return fmt.Errorf("%w: nonce %d of %s was used by another transaction", models.ErrLedgerRejected, tx.Nonce(), s.Hash)
		}
	}
	// The node may or may not have accepted it; resync the nonce so the next
	// signature does not build on a gap.
	e.resetNonce()
	return fmt.Errorf("send transaction %s: %w", s.Hash, err)
}

// Abandon frees the nonce of a transaction that will never be sent.
func (e *ERC20) Abandon(Signed) { e.resetNonce() }

// Status maps a receipt to an outcome. A missing receipt or too few
// confirmations is Pending; a failed receipt is Rejected.
func (e *ERC20) Status(ctx context.Context, txHash string) (Outcome, error) {
	receipt, err := e.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return Pending, nil
		}
		return Pending, fmt.Errorf("fetch receipt: %w", err)
	}
	if receipt == nil {
		return Pending, nil
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return Rejected, nil
	}
	if e.confirmations > 0 {
		header, err := e.client.HeaderByNumber(ctx, nil)
		if err != nil {
			return Pending, fmt.Errorf("fetch head: %w", err)
		}
		if header == nil || header.Number == nil || receipt.BlockNumber == nil {
			return Pending, nil
		}
		confirmed := new(big.Int).Sub(header.Number, receipt.BlockNumber)
		confirmed.Add(confirmed, big.NewInt(1))
		if confirmed.Cmp(new(big.Int).SetUint64(e.confirmations)) < 0 {
			return Pending, nil
		}
	}
	return Confirmed, nil
}

func (e *ERC20) call(ctx context.Context, data []byte) (amount.Amount, error) {
	out, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &e.token, Data: data}, nil)
	if err != nil {
		return amount.Zero, fmt.Errorf("token call failed: %w", err)
	}
	return amount.FromBig(new(big.Int).SetBytes(out))
}

func (e *ERC20) sign(ctx context.Context, data []byte) (Signed, error) {
	msg := ethereum.CallMsg{From: e.operator, To: &e.token, Data: data}
	gas, err := e.client.EstimateGas(ctx, msg)
	if err != nil {
		// Estimation executes the call; a revert here means the chain would reject it.
		return Signed{}, fmt.Errorf("%w: %v", models.ErrLedgerRejected, err)
	}
	tip, err := e.client.SuggestGasTipCap(ctx)
	if err != nil {
		return Signed{}, fmt.Errorf("suggest gas tip: %w", err)
	}
	head, err := e.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return Signed{}, fmt.Errorf("fetch head: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head != nil && head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	nonce, err := e.nonce(ctx)
	if err != nil {
		return Signed{}, err
	}
	tx := gethtypes.NewTx(&gethtypes.DynamicFeeTx{
		ChainID:   e.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &e.token,
		Value:     big.NewInt(0),
		Data:      data,
	})
	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(e.chainID), e.key)
	if err != nil {
		return Signed{}, fmt.Errorf("sign transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return Signed{}, fmt.Errorf("encode transaction: %w", err)
	}
	next := nonce + 1
	e.nextNonce = &next
	return Signed{Hash: signed.Hash().Hex(), Raw: hexutil.Encode(raw)}, nil
}

func (e *ERC20) resetNonce() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextNonce = nil
}

// nonce must be called with e.mu held.
func (e *ERC20) nonce(ctx context.Context) (uint64, error) {
	if e.nextNonce != nil {
		return *e.nextNonce, nil
	}
	n, err := e.client.PendingNonceAt(ctx, e.operator)
	if err != nil {
		return 0, fmt.Errorf("fetch nonce: %w", err)
	}
	return n, nil
}

func pack(sel []byte, words ...[]byte) []byte {
	out := make([]byte, 0, len(sel)+32*len(words))
	out = append(out, sel...)
	for _, w := range words {
		out = append(out, w...)
	}
	return out
}

func addressWord(addr string) []byte {
	return common.LeftPadBytes(common.HexToAddress(addr).Bytes(), 32)
}

func amountWord(v amount.Amount) []byte {
	w := v.Bytes32()
	return w[:]
}
