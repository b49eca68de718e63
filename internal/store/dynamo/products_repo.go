package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MrKriegler/policy-admin/internal/core"
)

type ProductRepo struct {
	client *dynamodb.Client
	table  string
}

func NewProductRepo(client *dynamodb.Client, tables Tables) *ProductRepo {
	return &ProductRepo{client: client, table: tables.Name(TableProducts)}
}

func (r *ProductRepo) List(ctx context.Context, tenantID string) ([]core.Product, error) {
	return r.query(ctx, tenantID, nil)
}

func (r *ProductRepo) GetByID(ctx context.Context, tenantID, id string) (core.Product, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"tenant_id": &types.AttributeValueMemberS{Value: tenantID},
			"id":        &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return core.Product{}, fmt.Errorf("products.get: %w", err)
	}
	if out.Item == nil {
		return core.Product{}, core.ErrProductNotFound
	}

	var item ProductItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return core.Product{}, fmt.Errorf("products.unmarshal: %w", err)
	}
	return item.ToCore(), nil
}

// GetByAlias filters the tenant's partition; a tenant carries few products.
func (r *ProductRepo) GetByAlias(ctx context.Context, tenantID, alias string) (core.Product, error) {
	filter := expression.Name("alias").Equal(expression.Value(alias))
	products, err := r.query(ctx, tenantID, &filter)
	if err != nil {
		return core.Product{}, err
	}
	if len(products) == 0 {
		return core.Product{}, core.ErrProductNotFound
	}
	return products[0], nil
}

func (r *ProductRepo) Upsert(ctx context.Context, p core.Product) error {
	existing, err := r.GetByAlias(ctx, p.TenantID, p.Alias)
	switch {
	case err == nil && existing.ID != p.ID:
		return core.ErrProductConflict
	case err != nil && !errors.Is(err, core.ErrProductNotFound):
		return err
	}

	av, err := attributevalue.MarshalMap(productItemFromCore(p))
	if err != nil {
		return fmt.Errorf("products.marshal: %w", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("products.put: %w", err)
	}
	return nil
}

func (r *ProductRepo) query(ctx context.Context, tenantID string, filter *expression.ConditionBuilder) ([]core.Product, error) {
	builder := expression.NewBuilder().
		WithKeyCondition(expression.Key("tenant_id").Equal(expression.Value(tenantID)))
	if filter != nil {
		builder = builder.WithFilter(*filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("products.buildExpr: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var products []core.Product
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("products.query: %w", err)
		}
		var items []ProductItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("products.unmarshal: %w", err)
		}
		for _, item := range items {
			products = append(products, item.ToCore())
		}
	}
	return products, nil
}
