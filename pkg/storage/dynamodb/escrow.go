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

func (s *Store) GetEscrow(ctx context.Context, txID uint64) (*models.EscrowRecord, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Escrows),
		Key:            map[string]types.AttributeValue{"transaction_id": numberAV(txID)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get escrow from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("escrow %d: %w", txID, models.ErrNotFound)
	}

	var escrow models.EscrowRecord
	if err := attributevalue.UnmarshalMap(result.Item, &escrow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal escrow: %w", err)
	}
	return &escrow, nil
}

// UpdateEscrow records leg progress under optimistic locking.
func (s *Store) UpdateEscrow(ctx context.Context, escrow *models.EscrowRecord) error {
	put, err := s.escrowPut(escrow, "version = :version")
	if err != nil {
		return err
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 put.TableName,
		Item:                      put.Item,
		ConditionExpression:       put.ConditionExpression,
		ExpressionAttributeValues: put.ExpressionAttributeValues,
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("escrow %d: %w", escrow.TransactionID, models.ErrConflict)
		}
		return fmt.Errorf("failed to update escrow: %w", err)
	}
	escrow.Version++
	return nil
}

// ListEscrowsAwaitingLedger reads the sparse reconciliation index.
func (s *Store) ListEscrowsAwaitingLedger(ctx context.Context) ([]models.EscrowRecord, error) {
	items, err := s.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.Escrows),
		IndexName:              aws.String(awaitingLedgerIndex),
		KeyConditionExpression: aws.String("awaiting_ledger = :key"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":key": &types.AttributeValueMemberS{Value: models.AwaitingLedgerKey},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query escrows awaiting ledger: %w", err)
	}

	var escrows []models.EscrowRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &escrows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal escrows: %w", err)
	}
	return escrows, nil
}

// escrowPut builds a Put that stores escrow at Version+1 under condition.
// The condition may reference :version and :false.
func (s *Store) escrowPut(escrow *models.EscrowRecord, condition string) (*types.Put, error) {
	next := escrow.Clone()
	next.Version++
	next.Touch()
	escrow.AwaitingLedger = next.AwaitingLedger
	item, err := attributevalue.MarshalMap(next)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal escrow: %w", err)
	}
	values := map[string]types.AttributeValue{":version": versionAV(escrow.Version)}
	if condition != "version = :version" {
		values[":false"] = &types.AttributeValueMemberBOOL{Value: false}
	}
	return &types.Put{
		TableName:                 aws.String(s.Escrows),
		Item:                      item,
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeValues: values,
	}, nil
}
