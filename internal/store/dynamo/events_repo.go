package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MrKriegler/policy-admin/internal/core"
)

// DynamoDB caps a transaction at 100 items; one slot is kept for the
// version check.
const maxEventsPerAppend = 99

// EventStore keeps one item per event keyed by (aggregate_id, sequence).
// An append is a single transaction: the item at expectedVersion must exist
// and none of the new sequences may.
type EventStore struct {
	client *dynamodb.Client
	table  string
}

func NewEventStore(client *dynamodb.Client, tables Tables) *EventStore {
	return &EventStore{client: client, table: tables.Name(TableEvents)}
}

func (s *EventStore) Load(ctx context.Context, tenantID, aggregateID string) ([]core.EventRecord, error) {
	keyCond := expression.Key("aggregate_id").Equal(expression.Value(aggregateID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("quote_events.buildExpr: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
		ScanIndexForward:          aws.Bool(true),
	})

	var records []core.EventRecord
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("quote_events.query: %w", err)
		}
		var items []EventItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("quote_events.unmarshal: %w", err)
		}
		for _, item := range items {
			records = append(records, item.ToCore())
		}
	}
	return records, nil
}

func (s *EventStore) Append(ctx context.Context, tenantID, aggregateID string, expectedVersion int, records []core.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	if len(records) > maxEventsPerAppend {
		return fmt.Errorf("%w: cannot append %d events at once", core.ErrValidation, len(records))
	}

	tx := make([]types.TransactWriteItem, 0, len(records)+1)
	if expectedVersion > 0 {
		check, err := s.versionCheck(aggregateID, expectedVersion)
		if err != nil {
			return err
		}
		tx = append(tx, check)
	}

	notExists := expression.AttributeNotExists(expression.Name("aggregate_id"))
	expr, err := expression.NewBuilder().WithCondition(notExists).Build()
	if err != nil {
		return fmt.Errorf("quote_events.buildExpr: %w", err)
	}
	for _, r := range records {
		av, err := attributevalue.MarshalMap(eventItemFromCore(r))
		if err != nil {
			return fmt.Errorf("quote_events.marshal: %w", err)
		}
		tx = append(tx, types.TransactWriteItem{
			Put: &types.Put{
				TableName:                aws.String(s.table),
				Item:                     av,
				ConditionExpression:      expr.Condition(),
				ExpressionAttributeNames: expr.Names(),
			},
		})
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: tx})
	if err != nil {
		var cancelled *types.TransactionCanceledException
		if errors.As(err, &cancelled) {
			return core.ErrEventStreamConflict
		}
		return fmt.Errorf("quote_events.transactWrite: %w", err)
	}
	return nil
}

func (s *EventStore) versionCheck(aggregateID string, version int) (types.TransactWriteItem, error) {
	exists := expression.AttributeExists(expression.Name("aggregate_id"))
	expr, err := expression.NewBuilder().WithCondition(exists).Build()
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("quote_events.buildExpr: %w", err)
	}
	return types.TransactWriteItem{
		ConditionCheck: &types.ConditionCheck{
			TableName: aws.String(s.table),
			Key: map[string]types.AttributeValue{
				"aggregate_id": &types.AttributeValueMemberS{Value: aggregateID},
				"sequence":     &types.AttributeValueMemberN{Value: strconv.Itoa(version)},
			},
			ConditionExpression:      expr.Condition(),
			ExpressionAttributeNames: expr.Names(),
		},
	}, nil
}
