package dynamodb

import (
	"context"
	"errors"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/koneque/marketplace-escrow/pkg/storage"
)

// DynamoDBAPI is the subset of the DynamoDB client the store uses.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Tables names every table the store writes to.
type Tables struct {
	Listings      string
	Transactions  string
	Escrows       string
	ReferralCodes string
	Referrals     string
	Ledger        string
	Counters      string
	Connections   string
}

// Store implements the Storage interface using AWS DynamoDB.
type Store struct {
	Client DynamoDBAPI
	Tables
}

// New creates a new Store.
func New(client DynamoDBAPI, tables Tables) *Store {
	return &Store{Client: client, Tables: tables}
}

// Make sure we conform to the interface
var (
	_ storage.Storage          = (*Store)(nil)
	_ storage.WebSocketManager = (*Store)(nil)
)

// Global secondary indexes. Sparse indexes only contain items that carry
// the partition attribute.
const (
	activeListingsIndex   = "active_key-id-index"
	sellerListingsIndex   = "seller-id-index"
	buyerTxIndex          = "buyer-id-index"
	sellerTxIndex         = "seller-id-index"
	deliveredIndex        = "status-delivered_ns-index"
	awaitingLedgerIndex   = "awaiting_ledger-index"
	referrerCodesIndex    = "referrer-index"
	referrerReferralIndex = "referrer-index"
	ledgerRecentIndex     = "gsi1pk-timestamp-index"
	ledgerAccountIndex    = "account_id-timestamp-index"
	ledgerTxIndex         = "transaction_id-index"
	connectionsIndex      = "pk-index"

	conditionalCheckFailed = "ConditionalCheckFailed"
)

func numberAV(n uint64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatUint(n, 10)}
}

func versionAV(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

// cancellationReasons returns the per-item reasons of a cancelled
// TransactWriteItems call, or nil for any other error.
func cancellationReasons(err error) []types.CancellationReason {
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		return tce.CancellationReasons
	}
	return nil
}

// conditionFailedAt reports whether the item at index failed its condition.
func conditionFailedAt(reasons []types.CancellationReason, index int) bool {
	return index < len(reasons) && aws.ToString(reasons[index].Code) == conditionalCheckFailed
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
