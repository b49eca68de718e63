package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/MrKriegler/policy-admin/internal/core"
)

type SystemAlertRepo struct {
	client *dynamodb.Client
	table  string
}

func NewSystemAlertRepo(client *dynamodb.Client, tables Tables) *SystemAlertRepo {
	return &SystemAlertRepo{client: client, table: tables.Name(TableSystemAlerts)}
}

func (r *SystemAlertRepo) ListByTenant(ctx context.Context, tenantID string) ([]core.SystemAlert, error) {
	keyCond := expression.Key("tenant_id").Equal(expression.Value(tenantID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("system_alerts.buildExpr: %w", err)
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("system_alerts.query: %w", err)
	}

	var items []SystemAlertItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("system_alerts.unmarshal: %w", err)
	}
	alerts := make([]core.SystemAlert, len(items))
	for i, item := range items {
		alerts[i] = item.ToCore()
	}
	return alerts, nil
}

// Upsert keeps the first ID written for a (tenant, product, type) scope.
func (r *SystemAlertRepo) Upsert(ctx context.Context, a core.SystemAlert) error {
	key, err := attributevalue.MarshalMap(struct {
		TenantID string `dynamodbav:"tenant_id"`
		Scope    string `dynamodbav:"scope"`
	}{a.TenantID, alertScope(a.ProductID, a.Type)})
	if err != nil {
		return fmt.Errorf("system_alerts.marshal: %w", err)
	}

	update := expression.
		Set(expression.Name("id"), expression.IfNotExists(expression.Name("id"), expression.Value(a.ID))).
		Set(expression.Name("product_id"), expression.Value(a.ProductID)).
		Set(expression.Name("type"), expression.Value(string(a.Type))).
		Set(expression.Name("warning_threshold"), expression.Value(a.WarningThreshold)).
		Set(expression.Name("critical_threshold"), expression.Value(a.CriticalThreshold)).
		Set(expression.Name("disabled"), expression.Value(a.Disabled)).
		Set(expression.Name("updated_at"), expression.Value(formatTime(a.UpdatedAt)))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("system_alerts.buildExpr: %w", err)
	}

	if _, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}); err != nil {
		return fmt.Errorf("system_alerts.upsert: %w", err)
	}
	return nil
}
