package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/koneque/marketplace-escrow/pkg/models"
)

// ListLedgerEntries returns the newest entries, across all accounts when
// account is empty.
func (s *Store) ListLedgerEntries(ctx context.Context, account string, limit int32) ([]models.LedgerEntry, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Ledger),
		IndexName:              aws.String(ledgerRecentIndex),
		KeyConditionExpression: aws.String("gsi1pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: ledgerPartition},
		},
		ScanIndexForward: aws.Bool(false), // Sort by timestamp in descending order
	}
	if account != "" {
		input.IndexName = aws.String(ledgerAccountIndex)
		input.KeyConditionExpression = aws.String("account_id = :account")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":account": &types.AttributeValueMemberS{Value: account},
		}
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query for ledger entries: %w", err)
	}

	var entries []models.LedgerEntry
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger entries: %w", err)
	}
	return entries, nil
}

func (s *Store) ListLedgerEntriesByTransaction(ctx context.Context, txID uint64) ([]models.LedgerEntry, error) {
	items, err := s.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.Ledger),
		IndexName:              aws.String(ledgerTxIndex),
		KeyConditionExpression: aws.String("transaction_id = :tx"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tx": numberAV(txID),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries for transaction %d: %w", txID, err)
	}

	var entries []models.LedgerEntry
	if err := attributevalue.UnmarshalListOfMaps(items, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger entries: %w", err)
	}
	return entries, nil
}
