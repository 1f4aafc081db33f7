package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/koneque/marketplace-escrow/pkg/models"
)

// GetTransaction retrieves a transaction from DynamoDB by its ID.
func (s *Store) GetTransaction(ctx context.Context, id uint64) (*models.Transaction, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Transactions),
		Key:            map[string]types.AttributeValue{"id": numberAV(id)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("transaction %d: %w", id, models.ErrNotFound)
	}

	var tx models.Transaction
	if err := attributevalue.UnmarshalMap(result.Item, &tx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	return &tx, nil
}

// ListTransactionsByUser merges the buyer and seller indexes.
func (s *Store) ListTransactionsByUser(ctx context.Context, user string) ([]models.Transaction, error) {
	seen := make(map[uint64]struct{})
	var out []models.Transaction
	for _, idx := range []struct{ index, attr string }{
		{buyerTxIndex, "buyer"},
		{sellerTxIndex, "seller"},
	} {
		items, err := s.queryAll(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.Transactions),
			IndexName:              aws.String(idx.index),
			KeyConditionExpression: aws.String(idx.attr + " = :user"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":user": &types.AttributeValueMemberS{Value: user},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query transactions by %s: %w", idx.attr, err)
		}
		var txs []models.Transaction
		if err := attributevalue.UnmarshalListOfMaps(items, &txs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transactions: %w", err)
		}
		for _, tx := range txs {
			if _, dup := seen[tx.ID]; dup {
				continue
			}
			seen[tx.ID] = struct{}{}
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ListDeliveredBefore finds delivered transactions whose grace period may
// have elapsed. The index sorts on delivered_ns, which orders numerically.
func (s *Store) ListDeliveredBefore(ctx context.Context, cutoff time.Time) ([]models.Transaction, error) {
	items, err := s.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.Transactions),
		IndexName:              aws.String(deliveredIndex),
		KeyConditionExpression: aws.String("#status = :status AND delivered_ns <= :cutoff"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(models.ProductDelivered)},
			":cutoff": &types.AttributeValueMemberN{Value: strconv.FormatInt(cutoff.UnixNano(), 10)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query for delivered transactions: %w", err)
	}

	var transactions []models.Transaction
	if err := attributevalue.UnmarshalListOfMaps(items, &transactions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal delivered transactions: %w", err)
	}
	return transactions, nil
}

// SaveTransaction replaces the transaction if the stored version matches.
func (s *Store) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	put, err := s.transactionPut(tx)
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
			return fmt.Errorf("transaction %d: %w", tx.ID, models.ErrConflict)
		}
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	tx.Version++
	return nil
}

// transactionPut builds a versioned Put that stores tx at Version+1.
func (s *Store) transactionPut(tx *models.Transaction) (*types.Put, error) {
	next := *tx
	next.Version++
	next.Touch()
	item, err := attributevalue.MarshalMap(next)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction: %w", err)
	}
	return &types.Put{
		TableName:                 aws.String(s.Transactions),
		Item:                      item,
		ConditionExpression:       aws.String("version = :version"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":version": versionAV(tx.Version)},
	}, nil
}
