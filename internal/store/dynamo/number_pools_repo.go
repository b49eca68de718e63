package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MrKriegler/policy-admin/internal/core"
)

type NumberPoolRepo struct {
	client *dynamodb.Client
	table  string
}

func NewNumberPoolRepo(client *dynamodb.Client, tables Tables) *NumberPoolRepo {
	return &NumberPoolRepo{client: client, table: tables.Name(TableNumberPools)}
}

func poolKey(key core.NumberPoolKey) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: key.String()},
	}
}

func (r *NumberPoolRepo) Get(ctx context.Context, key core.NumberPoolKey) (core.NumberPool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            poolKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return core.NumberPool{}, fmt.Errorf("number_pools.get: %w", err)
	}
	if out.Item == nil {
		return core.NumberPool{}, core.ErrNumberPoolNotFound
	}

	var item NumberPoolItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return core.NumberPool{}, fmt.Errorf("number_pools.unmarshal: %w", err)
	}
	return item.ToCore(), nil
}

func (r *NumberPoolRepo) List(ctx context.Context) ([]core.NumberPool, error) {
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.table),
	})

	var pools []core.NumberPool
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("number_pools.scan: %w", err)
		}
		var items []NumberPoolItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("number_pools.unmarshal: %w", err)
		}
		for _, item := range items {
			pools = append(pools, item.ToCore())
		}
	}
	return pools, nil
}

func (r *NumberPoolRepo) Upsert(ctx context.Context, p core.NumberPool) error {
	av, err := attributevalue.MarshalMap(numberPoolItemFromCore(p))
	if err != nil {
		return fmt.Errorf("number_pools.marshal: %w", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("number_pools.put: %w", err)
	}
	return nil
}

// Consume adds one to next only while next <= last. The old image carries
// the issued number.
func (r *NumberPoolRepo) Consume(ctx context.Context, key core.NumberPoolKey) (int64, int64, error) {
	update := expression.
		Add(expression.Name("next"), expression.Value(1)).
		Set(expression.Name("updated_at"), expression.Value(formatTime(time.Now())))
	cond := expression.Name("next").LessThanEqual(expression.Name("last"))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return 0, 0, fmt.Errorf("number_pools.buildExpr: %w", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       poolKey(key),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// missing item also fails the comparison
			if _, gerr := r.Get(ctx, key); gerr != nil {
				return 0, 0, gerr
			}
			return 0, 0, core.ErrNumberPoolExhausted
		}
		return 0, 0, fmt.Errorf("number_pools.consume: %w", err)
	}

	var before NumberPoolItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &before); err != nil {
		return 0, 0, fmt.Errorf("number_pools.unmarshal: %w", err)
	}
	return before.Next, before.Last - before.Next, nil
}

func (r *NumberPoolRepo) Extend(ctx context.Context, key core.NumberPoolKey, count int64) (core.NumberPool, error) {
	update := expression.
		Add(expression.Name("last"), expression.Value(count)).
		Set(expression.Name("updated_at"), expression.Value(formatTime(time.Now())))
	cond := expression.AttributeExists(expression.Name("id"))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return core.NumberPool{}, fmt.Errorf("number_pools.buildExpr: %w", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       poolKey(key),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return core.NumberPool{}, core.ErrNumberPoolNotFound
		}
		return core.NumberPool{}, fmt.Errorf("number_pools.extend: %w", err)
	}

	var after NumberPoolItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &after); err != nil {
		return core.NumberPool{}, fmt.Errorf("number_pools.unmarshal: %w", err)
	}
	return after.ToCore(), nil
}
