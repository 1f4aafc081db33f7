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

func (s *Store) CreateReferralCode(ctx context.Context, code *models.ReferralCode) error {
	item, err := attributevalue.MarshalMap(code)
	if err != nil {
		return fmt.Errorf("failed to marshal referral code: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.ReferralCodes),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(code)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("referral code %s: %w", code.Code, models.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to put referral code: %w", err)
	}
	return nil
}

func (s *Store) GetReferralCode(ctx context.Context, code string) (*models.ReferralCode, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.ReferralCodes),
		Key:            map[string]types.AttributeValue{"code": &types.AttributeValueMemberS{Value: code}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get referral code from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("referral code %s: %w", code, models.ErrNotFound)
	}

	var rc models.ReferralCode
	if err := attributevalue.UnmarshalMap(result.Item, &rc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal referral code: %w", err)
	}
	return &rc, nil
}

func (s *Store) ListReferralCodesByReferrer(ctx context.Context, referrer string) ([]models.ReferralCode, error) {
	items, err := s.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.ReferralCodes),
		IndexName:              aws.String(referrerCodesIndex),
		KeyConditionExpression: aws.String("referrer = :referrer"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":referrer": &types.AttributeValueMemberS{Value: referrer},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query referral codes: %w", err)
	}

	var codes []models.ReferralCode
	if err := attributevalue.UnmarshalListOfMaps(items, &codes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal referral codes: %w", err)
	}
	return codes, nil
}

// RegisterReferral bumps the code's usage and creates the relationship in
// one transaction so a code can never be used more than MaxUsage times.
func (s *Store) RegisterReferral(ctx context.Context, code *models.ReferralCode, rel *models.ReferralRelationship) error {
	next := *code
	next.Version++
	codeAV, err := attributevalue.MarshalMap(next)
	if err != nil {
		return fmt.Errorf("failed to marshal referral code: %w", err)
	}
	relAV, err := attributevalue.MarshalMap(rel)
	if err != nil {
		return fmt.Errorf("failed to marshal referral: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: Record the new usage count.
				Put: &types.Put{
					TableName:                 aws.String(s.ReferralCodes),
					Item:                      codeAV,
					ConditionExpression:       aws.String("version = :version"),
					ExpressionAttributeValues: map[string]types.AttributeValue{":version": versionAV(code.Version)},
				},
			},
			{
				// Operation 2: Bind the referred address to its referrer.
				Put: &types.Put{
					TableName:           aws.String(s.Referrals),
					Item:                relAV,
					ConditionExpression: aws.String("attribute_not_exists(referred)"),
				},
			},
		},
	}

	_, err = s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		reasons := cancellationReasons(err)
		if conditionFailedAt(reasons, 1) {
			return fmt.Errorf("address %s: %w", rel.Referred, models.ErrAlreadyReferred)
		}
		if conditionFailedAt(reasons, 0) {
			return fmt.Errorf("referral code %s: %w", code.Code, models.ErrConflict)
		}
		return fmt.Errorf("failed to register referral: %w", err)
	}
	code.Version++
	return nil
}

func (s *Store) GetReferralRelationship(ctx context.Context, referred string) (*models.ReferralRelationship, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Referrals),
		Key:            map[string]types.AttributeValue{"referred": &types.AttributeValueMemberS{Value: referred}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get referral from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("referral for %s: %w", referred, models.ErrNotFound)
	}

	var rel models.ReferralRelationship
	if err := attributevalue.UnmarshalMap(result.Item, &rel); err != nil {
		return nil, fmt.Errorf("failed to unmarshal referral: %w", err)
	}
	return &rel, nil
}

func (s *Store) ListReferralsByReferrer(ctx context.Context, referrer string) ([]models.ReferralRelationship, error) {
	items, err := s.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.Referrals),
		IndexName:              aws.String(referrerReferralIndex),
		KeyConditionExpression: aws.String("referrer = :referrer"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":referrer": &types.AttributeValueMemberS{Value: referrer},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query referrals: %w", err)
	}

	var rels []models.ReferralRelationship
	if err := attributevalue.UnmarshalListOfMaps(items, &rels); err != nil {
		return nil, fmt.Errorf("failed to unmarshal referrals: %w", err)
	}
	return rels, nil
}
