package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MrKriegler/policy-admin/internal/core"
)

type RoleRepo struct {
	client      *dynamodb.Client
	roles       string
	assignments string
}

func NewRoleRepo(client *dynamodb.Client, tables Tables) *RoleRepo {
	return &RoleRepo{
		client:      client,
		roles:       tables.Name(TableRoles),
		assignments: tables.Name(TableRoleAssignments),
	}
}

func roleKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

func (r *RoleRepo) Get(ctx context.Context, id string) (core.Role, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.roles),
		Key:       roleKey(id),
	})
	if err != nil {
		return core.Role{}, fmt.Errorf("roles.get: %w", err)
	}
	if out.Item == nil {
		return core.Role{}, core.ErrRoleNotFound
	}

	var item RoleItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return core.Role{}, fmt.Errorf("roles.unmarshal: %w", err)
	}
	return item.ToCore(), nil
}

func (r *RoleRepo) ListByTenant(ctx context.Context, tenantID string) ([]core.Role, error) {
	keyCond := expression.Key("tenant_id").Equal(expression.Value(tenantID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("roles.buildExpr: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.roles),
		IndexName:                 aws.String(GSIRolesTenant),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var roles []core.Role
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("roles.query: %w", err)
		}
		var items []RoleItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("roles.unmarshal: %w", err)
		}
		for _, item := range items {
			roles = append(roles, item.ToCore())
		}
	}
	return roles, nil
}

// Upsert rejects a second role with the same name in a tenant. The GSI is
// eventually consistent, so two racing creates can still both land.
func (r *RoleRepo) Upsert(ctx context.Context, role core.Role) error {
	existing, err := r.ListByTenant(ctx, role.TenantID)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.ID != role.ID && strings.EqualFold(e.Name, role.Name) {
			return fmt.Errorf("%w: role %q already exists", core.ErrConflict, role.Name)
		}
	}

	av, err := attributevalue.MarshalMap(roleItemFromCore(role))
	if err != nil {
		return fmt.Errorf("roles.marshal: %w", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.roles),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("roles.put: %w", err)
	}
	return nil
}

func (r *RoleRepo) Delete(ctx context.Context, id string) error {
	cond := expression.AttributeExists(expression.Name("id"))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("roles.buildExpr: %w", err)
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.roles),
		Key:                      roleKey(id),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return core.ErrRoleNotFound
		}
		return fmt.Errorf("roles.delete: %w", err)
	}
	return nil
}

func (r *RoleRepo) Assign(ctx context.Context, tenantID, roleID, userID string) error {
	av, err := attributevalue.MarshalMap(struct {
		RoleID    string `dynamodbav:"role_id"`
		UserID    string `dynamodbav:"user_id"`
		TenantID  string `dynamodbav:"tenant_id"`
		CreatedAt string `dynamodbav:"created_at"`
	}{roleID, userID, tenantID, formatTime(time.Now())})
	if err != nil {
		return fmt.Errorf("role_assignments.marshal: %w", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.assignments),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("role_assignments.put: %w", err)
	}
	return nil
}

func (r *RoleRepo) CountAssignments(ctx context.Context, tenantID, roleID string) (int64, error) {
	keyCond := expression.Key("tenant_id").Equal(expression.Value(tenantID)).
		And(expression.Key("role_id").Equal(expression.Value(roleID)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return 0, fmt.Errorf("role_assignments.buildExpr: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.assignments),
		IndexName:                 aws.String(GSIRoleAssignmentTenant),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Select:                    types.SelectCount,
	})

	var total int64
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("role_assignments.count: %w", err)
		}
		total += int64(page.Count)
	}
	return total, nil
}
