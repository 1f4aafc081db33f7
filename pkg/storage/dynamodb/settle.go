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

// ledgerItem adds the constant partition key of the recent-entries index.
type ledgerItem struct {
	models.LedgerEntry
	GSI1PK string `dynamodbav:"gsi1pk"`
}

const ledgerPartition = "LEDGER_ENTRIES"

// Settle commits a release or refund in a single TransactWriteItems call:
// the escrow, the transaction, the referral reward flag and every journal
// entry either all land or none do.
func (s *Store) Settle(ctx context.Context, st *models.Settlement) error {
	escrowPut, err := s.escrowPut(st.Escrow, "released = :false AND version = :version")
	if err != nil {
		return err
	}
	// Returning the old item lets us tell a lost race from a stale read.
	escrowPut.ReturnValuesOnConditionCheckFailure = types.ReturnValuesOnConditionCheckFailureAllOld

	txPut, err := s.transactionPut(st.Transaction)
	if err != nil {
		return err
	}

	items := []types.TransactWriteItem{
		{Put: escrowPut},
		{Put: txPut},
	}

	if rel := st.Referral; rel != nil {
		next := *rel
		next.Version++
		relAV, err := attributevalue.MarshalMap(next)
		if err != nil {
			return fmt.Errorf("failed to marshal referral: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.Referrals),
				Item:                relAV,
				ConditionExpression: aws.String("version = :version AND first_purchase_recorded = :false"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":version": versionAV(rel.Version),
					":false":   &types.AttributeValueMemberBOOL{Value: false},
				},
			},
		})
	}

	for _, entry := range st.Entries {
		entryAV, err := attributevalue.MarshalMap(ledgerItem{LedgerEntry: entry, GSI1PK: ledgerPartition})
		if err != nil {
			return fmt.Errorf("failed to marshal ledger entry: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.Ledger),
				Item:                entryAV,
				ConditionExpression: aws.String("attribute_not_exists(entry_id)"),
			},
		})
	}

	_, err = s.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		reasons := cancellationReasons(err)
		if conditionFailedAt(reasons, 0) {
			if released, ok := reasons[0].Item["released"].(*types.AttributeValueMemberBOOL); ok && released.Value {
				return fmt.Errorf("escrow %d: %w", st.Escrow.TransactionID, models.ErrAlreadyReleased)
			}
			return fmt.Errorf("escrow %d: %w", st.Escrow.TransactionID, models.ErrConflict)
		}
		for i := 1; i < len(items); i++ {
			if conditionFailedAt(reasons, i) {
				return fmt.Errorf("settlement of %d: %w", st.Transaction.ID, models.ErrConflict)
			}
		}
		return fmt.Errorf("failed to execute settlement transaction: %w", err)
	}

	st.Escrow.Version++
	st.Transaction.Version++
	if st.Referral != nil {
		st.Referral.Version++
	}
	return nil
}
