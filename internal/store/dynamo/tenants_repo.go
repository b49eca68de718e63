package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MrKriegler/policy-admin/internal/core"
)

// TenantRepo serves both tenants and their settings.
type TenantRepo struct {
	client   *dynamodb.Client
	tenants  string
	settings string
}

func NewTenantRepo(client *dynamodb.Client, tables Tables) *TenantRepo {
	return &TenantRepo{
		client:   client,
		tenants:  tables.Name(TableTenants),
		settings: tables.Name(TableTenantSettings),
	}
}

func (r *TenantRepo) Get(ctx context.Context, id string) (core.Tenant, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tenants),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return core.Tenant{}, fmt.Errorf("tenants.get: %w", err)
	}
	if out.Item == nil {
		return core.Tenant{}, core.ErrTenantNotFound
	}

	var item TenantItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return core.Tenant{}, fmt.Errorf("tenants.unmarshal: %w", err)
	}
	return item.ToCore(), nil
}

func (r *TenantRepo) List(ctx context.Context) ([]core.Tenant, error) {
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.tenants),
	})

	var tenants []core.Tenant
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("tenants.scan: %w", err)
		}
		var items []TenantItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("tenants.unmarshal: %w", err)
		}
		for _, item := range items {
			tenants = append(tenants, item.ToCore())
		}
	}
	return tenants, nil
}

func (r *TenantRepo) Upsert(ctx context.Context, t core.Tenant) error {
	av, err := attributevalue.MarshalMap(TenantItem{
		ID:        t.ID,
		Alias:     t.Alias,
		Name:      t.Name,
		Disabled:  t.Disabled,
		CreatedAt: formatTime(t.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("tenants.marshal: %w", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tenants),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("tenants.put: %w", err)
	}
	return nil
}

func (r *TenantRepo) GetSettings(ctx context.Context, tenantID string) (core.TenantSettings, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.settings),
		Key: map[string]types.AttributeValue{
			"tenant_id": &types.AttributeValueMemberS{Value: tenantID},
		},
	})
	if err != nil {
		return core.TenantSettings{}, fmt.Errorf("tenant_settings.get: %w", err)
	}
	if out.Item == nil {
		return core.TenantSettings{}, core.ErrTenantSettingsNotFound
	}

	var item TenantSettingsItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return core.TenantSettings{}, fmt.Errorf("tenant_settings.unmarshal: %w", err)
	}
	return item.ToCore(), nil
}

func (r *TenantRepo) UpsertSettings(ctx context.Context, s core.TenantSettings) error {
	av, err := attributevalue.MarshalMap(TenantSettingsItem{
		TenantID:               s.TenantID,
		QuoteNumberPrefix:      s.QuoteNumberPrefix,
		PolicyNumberPrefix:     s.PolicyNumberPrefix,
		DefaultQuoteExpiryDays: s.DefaultQuoteExpiryDays,
		AlertEmail:             s.AlertEmail,
	})
	if err != nil {
		return fmt.Errorf("tenant_settings.marshal: %w", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.settings),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("tenant_settings.put: %w", err)
	}
	return nil
}
