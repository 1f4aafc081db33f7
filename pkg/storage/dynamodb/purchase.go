package dynamodb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/koneque/marketplace-escrow/pkg/models"
)

// CreatePurchase atomically deactivates the listing and creates the
// transaction and escrow records.
func (s *Store) CreatePurchase(ctx context.Context, listing *models.Listing, tx *models.Transaction, escrow *models.EscrowRecord) error {
	slog.Log(ctx, slog.LevelDebug, "creating purchase", "transaction_id", tx.ID, "listing_id", listing.ID)

	deactivate, err := deactivateListingUpdate(s.Listings, listing.ID, tx.CreatedAt)
	if err != nil {
		return err
	}
	tx.Touch()
	txAV, err := attributevalue.MarshalMap(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}
	escrow.Touch()
	escrowAV, err := attributevalue.MarshalMap(escrow)
	if err != nil {
		return fmt.Errorf("failed to marshal escrow: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: Take the listing off the market.
				Update: deactivate,
			},
			{
				// Operation 2: Create the transaction record.
				Put: &types.Put{
					TableName:           aws.String(s.Transactions),
					Item:                txAV,
					ConditionExpression: aws.String("attribute_not_exists(id)"),
				},
			},
			{
				// Operation 3: Create the escrow record.
				Put: &types.Put{
					TableName:           aws.String(s.Escrows),
					Item:                escrowAV,
					ConditionExpression: aws.String("attribute_not_exists(transaction_id)"),
				},
			},
		},
	}

	_, err = s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		reasons := cancellationReasons(err)
		if conditionFailedAt(reasons, 0) {
			return fmt.Errorf("listing %d: %w", listing.ID, models.ErrAlreadyInactive)
		}
		if conditionFailedAt(reasons, 1) || conditionFailedAt(reasons, 2) {
			return fmt.Errorf("transaction %d: %w", tx.ID, models.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to execute purchase transaction: %w", err)
	}

	listing.SetActive(false, tx.CreatedAt)
	return nil
}

// RollbackPurchase deletes the transaction and escrow and relists the item.
// The escrow condition refuses to roll back a deposit the ledger confirmed.
func (s *Store) RollbackPurchase(ctx context.Context, tx *models.Transaction, escrow *models.EscrowRecord) error {
	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Delete: &types.Delete{
					TableName:                 aws.String(s.Escrows),
					Key:                       map[string]types.AttributeValue{"transaction_id": numberAV(tx.ID)},
					ConditionExpression:       aws.String("version = :version"),
					ExpressionAttributeValues: map[string]types.AttributeValue{":version": versionAV(escrow.Version)},
				},
			},
			{
				Delete: &types.Delete{
					TableName:           aws.String(s.Transactions),
					Key:                 map[string]types.AttributeValue{"id": numberAV(tx.ID)},
					ConditionExpression: aws.String("attribute_exists(id)"),
				},
			},
			{
				Update: &types.Update{
					TableName:        aws.String(s.Listings),
					Key:              map[string]types.AttributeValue{"id": numberAV(tx.ListingID)},
					UpdateExpression: aws.String("SET active = :true, active_key = :key REMOVE deactivated_at"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":true": &types.AttributeValueMemberBOOL{Value: true},
						":key":  &types.AttributeValueMemberS{Value: models.ActiveIndexKey},
					},
				},
			},
		},
	}

	_, err := s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		reasons := cancellationReasons(err)
		if conditionFailedAt(reasons, 0) || conditionFailedAt(reasons, 1) {
			return fmt.Errorf("escrow %d: %w", tx.ID, models.ErrConflict)
		}
		return fmt.Errorf("failed to roll back purchase: %w", err)
	}
	return nil
}
