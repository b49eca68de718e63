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

type FeatureSettingRepo struct {
	client *dynamodb.Client
	table  string
}

func NewFeatureSettingRepo(client *dynamodb.Client, tables Tables) *FeatureSettingRepo {
	return &FeatureSettingRepo{client: client, table: tables.Name(TableFeatureSettings)}
}

func featureSettingKey(tenantID, productID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"tenant_id":  &types.AttributeValueMemberS{Value: tenantID},
		"product_id": &types.AttributeValueMemberS{Value: productID},
	}
}

func (r *FeatureSettingRepo) GetProductFeatureSetting(ctx context.Context, tenantID, productID string) (core.ProductFeatureSetting, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            featureSettingKey(tenantID, productID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return core.ProductFeatureSetting{}, fmt.Errorf("product_feature_settings.get: %w", err)
	}
	if out.Item == nil {
		return core.ProductFeatureSetting{}, core.ErrProductFeatureSettingNotFound
	}

	var item FeatureSettingItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return core.ProductFeatureSetting{}, fmt.Errorf("product_feature_settings.unmarshal: %w", err)
	}
	return item.ToCore(), nil
}

func (r *FeatureSettingRepo) AddProductFeatureSetting(ctx context.Context, s core.ProductFeatureSetting) error {
	av, err := attributevalue.MarshalMap(featureSettingItemFromCore(s))
	if err != nil {
		return fmt.Errorf("product_feature_settings.marshal: %w", err)
	}

	cond := expression.AttributeNotExists(expression.Name("tenant_id"))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("product_feature_settings.buildExpr: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.table),
		Item:                     av,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return core.ErrProductFeatureSettingExists
		}
		return fmt.Errorf("product_feature_settings.put: %w", err)
	}
	return nil
}

func (r *FeatureSettingRepo) EnableProductFeature(ctx context.Context, tenantID, productID string, item core.ProductFeatureSettingItem) error {
	return r.setFeature(ctx, tenantID, productID, item, true)
}

func (r *FeatureSettingRepo) DisableProductFeature(ctx context.Context, tenantID, productID string, item core.ProductFeatureSettingItem) error {
	return r.setFeature(ctx, tenantID, productID, item, false)
}

func (r *FeatureSettingRepo) setFeature(ctx context.Context, tenantID, productID string, item core.ProductFeatureSettingItem, enabled bool) error {
	update := expression.Set(expression.Name("features."+string(item)), expression.Value(enabled))
	return r.update(ctx, tenantID, productID, update)
}

func (r *FeatureSettingRepo) UpdateRefundPolicy(ctx context.Context, tenantID, productID string, p core.RefundPolicy) error {
	update := expression.
		Set(expression.Name("refund_rule"), expression.Value(string(p.Rule))).
		Set(expression.Name("refund_period"), expression.Value(string(p.PeriodCategory))).
		Set(expression.Name("last_number_of_years"), expression.Value(p.LastNumberOfYears))
	return r.update(ctx, tenantID, productID, update)
}

func (r *FeatureSettingRepo) update(ctx context.Context, tenantID, productID string, update expression.UpdateBuilder) error {
	update = update.Set(expression.Name("updated_at"), expression.Value(formatTime(time.Now())))
	cond := expression.AttributeExists(expression.Name("tenant_id"))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("product_feature_settings.buildExpr: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       featureSettingKey(tenantID, productID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return core.ErrProductFeatureSettingNotFound
		}
		return fmt.Errorf("product_feature_settings.update: %w", err)
	}
	return nil
}
