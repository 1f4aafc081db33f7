package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/koneque/marketplace-escrow/pkg/models"
)

// CreateListing stores a new listing. The ID comes from the counters table so
// an existing item means a sequencing bug, not a user error.
func (s *Store) CreateListing(ctx context.Context, listing *models.Listing) error {
	item, err := attributevalue.MarshalMap(listing)
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.Listings),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("listing %d: %w", listing.ID, models.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to put listing: %w", err)
	}
	return nil
}

// GetListing retrieves a listing from DynamoDB by its ID.
func (s *Store) GetListing(ctx context.Context, id uint64) (*models.Listing, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Listings),
		Key:            map[string]types.AttributeValue{"id": numberAV(id)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get listing from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("listing %d: %w", id, models.ErrNotFound)
	}

	var listing models.Listing
	if err := attributevalue.UnmarshalMap(result.Item, &listing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal listing: %w", err)
	}
	return &listing, nil
}

// ListActiveListings pages through the sparse active-listings index.
func (s *Store) ListActiveListings(ctx context.Context, after uint64, limit int32) ([]models.Listing, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Listings),
		IndexName:              aws.String(activeListingsIndex),
		KeyConditionExpression: aws.String("active_key = :key AND id > :after"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":key":   &types.AttributeValueMemberS{Value: models.ActiveIndexKey},
			":after": numberAV(after),
		},
		ScanIndexForward: aws.Bool(true),
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query active listings: %w", err)
	}

	var listings []models.Listing
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &listings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal listings: %w", err)
	}
	return listings, nil
}

func (s *Store) ListListingsBySeller(ctx context.Context, seller string) ([]models.Listing, error) {
	items, err := s.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.Listings),
		IndexName:              aws.String(sellerListingsIndex),
		KeyConditionExpression: aws.String("seller = :seller"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":seller": &types.AttributeValueMemberS{Value: seller},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query listings by seller: %w", err)
	}

	var listings []models.Listing
	if err := attributevalue.UnmarshalListOfMaps(items, &listings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal listings: %w", err)
	}
	return listings, nil
}

// DeactivateListing flips the active flag and drops the listing from the
// active index in one conditional update.
func (s *Store) DeactivateListing(ctx context.Context, id uint64, at time.Time) error {
	update, err := deactivateListingUpdate(s.Listings, id, at)
	if err != nil {
		return err
	}

	_, err = s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 update.TableName,
		Key:                       update.Key,
		UpdateExpression:          update.UpdateExpression,
		ConditionExpression:       update.ConditionExpression,
		ExpressionAttributeValues: update.ExpressionAttributeValues,
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("listing %d: %w", id, models.ErrAlreadyInactive)
		}
		return fmt.Errorf("failed to deactivate listing: %w", err)
	}
	return nil
}

func deactivateListingUpdate(table string, id uint64, at time.Time) (*types.Update, error) {
	atAV, err := attributevalue.Marshal(at)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal timestamp: %w", err)
	}
	return &types.Update{
		TableName:           aws.String(table),
		Key:                 map[string]types.AttributeValue{"id": numberAV(id)},
		UpdateExpression:    aws.String("SET active = :false, deactivated_at = :at REMOVE active_key"),
		ConditionExpression: aws.String("attribute_exists(id) AND active = :true"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":false": &types.AttributeValueMemberBOOL{Value: false},
			":true":  &types.AttributeValueMemberBOOL{Value: true},
			":at":    atAV,
		},
	}, nil
}

// queryAll follows LastEvaluatedKey until the query is exhausted.
func (s *Store) queryAll(ctx context.Context, input *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)
		if len(result.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}
