package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Table names, without the deployment prefix.
const (
	TableEvents          = "quote_events"
	TableTenants         = "tenants"
	TableTenantSettings  = "tenant_settings"
	TableProducts        = "products"
	TableFeatureSettings = "product_feature_settings"
	TableNumberPools     = "number_pools"
	TableSystemAlerts    = "system_alerts"
	TableRoles           = "roles"
	TableRoleAssignments = "role_assignments"
)

// GSI names
const (
	GSIRolesTenant          = "tenant_id-index"
	GSIRoleAssignmentTenant = "tenant_id-role_id-index"
)

// Tables resolves prefixed table names.
type Tables struct {
	Prefix string
}

func (t Tables) Name(table string) string { return t.Prefix + table }

type tableSpec struct {
	name   string
	create func(context.Context, *dynamodb.Client, string) error
}

// EnsureTables creates all required tables if they don't exist.
func EnsureTables(ctx context.Context, client *dynamodb.Client, tables Tables, log *slog.Logger) error {
	specs := []tableSpec{
		{TableEvents, createEventsTable},
		{TableTenants, hashTable("id")},
		{TableTenantSettings, hashTable("tenant_id")},
		{TableProducts, hashRangeTable("tenant_id", "id")},
		{TableFeatureSettings, hashRangeTable("tenant_id", "product_id")},
		{TableNumberPools, hashTable("id")},
		{TableSystemAlerts, hashRangeTable("tenant_id", "scope")},
		{TableRoles, createRolesTable},
		{TableRoleAssignments, createRoleAssignmentsTable},
	}

	for _, s := range specs {
		name := tables.Name(s.name)
		exists, err := tableExists(ctx, client, name)
		if err != nil {
			return fmt.Errorf("check table %s: %w", name, err)
		}
		if exists {
			log.Info("table exists", "table", name)
			continue
		}

		log.Info("creating table", "table", name)
		if err := s.create(ctx, client, name); err != nil {
			return fmt.Errorf("create table %s: %w", name, err)
		}
		log.Info("table created", "table", name)
	}

	return nil
}

func tableExists(ctx context.Context, client *dynamodb.Client, name string) (bool, error) {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func hashTable(pk string) func(context.Context, *dynamodb.Client, string) error {
	return func(ctx context.Context, client *dynamodb.Client, name string) error {
		_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String(name),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(pk), KeyType: types.KeyTypeHash},
			},
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(pk), AttributeType: types.ScalarAttributeTypeS},
			},
			BillingMode: types.BillingModePayPerRequest,
		})
		return err
	}
}

func hashRangeTable(pk, sk string) func(context.Context, *dynamodb.Client, string) error {
	return func(ctx context.Context, client *dynamodb.Client, name string) error {
		_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String(name),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(pk), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String(sk), KeyType: types.KeyTypeRange},
			},
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(pk), AttributeType: types.ScalarAttributeTypeS},
				{AttributeName: aws.String(sk), AttributeType: types.ScalarAttributeTypeS},
			},
			BillingMode: types.BillingModePayPerRequest,
		})
		return err
	}
}

func createEventsTable(ctx context.Context, client *dynamodb.Client, name string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("aggregate_id"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sequence"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("aggregate_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sequence"), AttributeType: types.ScalarAttributeTypeN},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	return err
}

func createRolesTable(ctx context.Context, client *dynamodb.Client, name string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("tenant_id"), AttributeType: types.ScalarAttributeTypeS},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(GSIRolesTenant),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("tenant_id"), KeyType: types.KeyTypeHash},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	return err
}

func createRoleAssignmentsTable(ctx context.Context, client *dynamodb.Client, name string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("role_id"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("user_id"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("role_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("user_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("tenant_id"), AttributeType: types.ScalarAttributeTypeS},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(GSIRoleAssignmentTenant),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("tenant_id"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("role_id"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeKeysOnly},
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	return err
}
