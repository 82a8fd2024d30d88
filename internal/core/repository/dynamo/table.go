// Package dynamo implements domain.Table on Amazon DynamoDB.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/customer-service/internal/core/domain"
	"github.com/duynhne/customer-service/middleware"
)

const backend = "dynamodb"

// API is the subset of *dynamodb.Client used by Table.
type API interface {
	dynamodb.ScanAPIClient
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Table implements domain.Table using a DynamoDB table with a string hash key
type Table struct {
	client  API
	name    string
	keyAttr string
}

// NewTable creates a DynamoDB-backed table
func NewTable(client API, name, keyAttr string) *Table {
	return &Table{
		client:  client,
		name:    name,
		keyAttr: keyAttr,
	}
}

// EnsureTable creates the table (on-demand billing) if it does not exist yet.
// Used for local development against DynamoDB Local.
func (t *Table) EnsureTable(ctx context.Context) error {
	_, err := t.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(t.name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(t.keyAttr), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(t.keyAttr), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	var inUse *types.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return fmt.Errorf("create table %q: %w", t.name, err)
	}
	return nil
}

// Scan reads the whole table, following LastEvaluatedKey, and applies an OR filter
// of the given equality conditions.
func (t *Table) Scan(ctx context.Context, anyOf ...domain.Condition) (items []domain.Item, err error) {
	ctx, span := t.startSpan(ctx, "storage.scan", attribute.Int("filter.conditions", len(anyOf)))
	defer span.End()
	defer t.observe("scan", time.Now(), &err)

	input := &dynamodb.ScanInput{
		TableName:      aws.String(t.name),
		Select:         types.SelectAllAttributes,
		ConsistentRead: aws.Bool(true),
	}
	if len(anyOf) > 0 {
		expr, err := expression.NewBuilder().WithFilter(anyOfFilter(anyOf)).Build()
		if err != nil {
			return nil, fmt.Errorf("build scan filter: %w", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	paginator := dynamodb.NewScanPaginator(t.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("scan table %q: %w", t.name, err)
		}
		for _, av := range page.Items {
			item, err := unmarshalItem(av)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}

	span.SetAttributes(attribute.Int("items.count", len(items)))
	return items, nil
}

// Get reads one item with strongly consistent reads
func (t *Table) Get(ctx context.Context, key string) (item domain.Item, err error) {
	ctx, span := t.startSpan(ctx, "storage.get", attribute.String("item.key", key))
	defer span.End()
	defer t.observe("get", time.Now(), &err)

	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.name),
		Key:            t.key(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("get item %q: %w", key, err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("get item %q: %w", key, domain.ErrItemNotFound)
	}
	return unmarshalItem(out.Item)
}

// Put writes the item, replacing any item with the same key
func (t *Table) Put(ctx context.Context, item domain.Item) (err error) {
	ctx, span := t.startSpan(ctx, "storage.put")
	defer span.End()
	defer t.observe("put", time.Now(), &err)

	av, err := attributevalue.MarshalMap(map[string]any(item))
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	if _, err := t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      av,
	}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Update applies SET for every attribute in set, conditioned on the key matching,
// and returns ALL_NEW attributes. Nested maps are written as a whole.
func (t *Table) Update(ctx context.Context, key string, set domain.Item) (item domain.Item, err error) {
	ctx, span := t.startSpan(ctx, "storage.update", attribute.String("item.key", key))
	defer span.End()
	defer t.observe("update", time.Now(), &err)

	if len(set) == 0 {
		return nil, fmt.Errorf("update item %q: no attributes to set", key)
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)

	update := expression.Set(expression.Name(names[0]), expression.Value(set[names[0]]))
	for _, name := range names[1:] {
		update = update.Set(expression.Name(name), expression.Value(set[name]))
	}
	cond := expression.Name(t.keyAttr).Equal(expression.Value(key))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("build update expression: %w", err)
	}

	out, err := t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.name),
		Key:                       t.key(key),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, t.conditionalError("update", key, err, span)
	}
	return unmarshalItem(out.Attributes)
}

// Delete removes the item under the condition attribute_exists(key)
func (t *Table) Delete(ctx context.Context, key string) (err error) {
	ctx, span := t.startSpan(ctx, "storage.delete", attribute.String("item.key", key))
	defer span.End()
	defer t.observe("delete", time.Now(), &err)

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name(t.keyAttr))).
		Build()
	if err != nil {
		return fmt.Errorf("build delete condition: %w", err)
	}

	if _, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(t.name),
		Key:                       t.key(key),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}); err != nil {
		return t.conditionalError("delete", key, err, span)
	}
	return nil
}

func (t *Table) key(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		t.keyAttr: &types.AttributeValueMemberS{Value: key},
	}
}

func (t *Table) conditionalError(op, key string, err error, span trace.Span) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%s item %q: %w", op, key, domain.ErrConditionFailed)
	}
	span.RecordError(err)
	return fmt.Errorf("%s item %q: %w", op, key, err)
}

func (t *Table) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("layer", "repository"),
		attribute.String("db.system", backend),
		attribute.String("db.table", t.name),
	)
	return middleware.StartSpan(ctx, name, trace.WithAttributes(attrs...))
}

func (t *Table) observe(op string, start time.Time, err *error) {
	middleware.ObserveStorage(backend, op, start, *err)
}

func anyOfFilter(anyOf []domain.Condition) expression.ConditionBuilder {
	filter := expression.Name(anyOf[0].Attribute).Equal(expression.Value(anyOf[0].Value))
	for _, c := range anyOf[1:] {
		filter = filter.Or(expression.Name(c.Attribute).Equal(expression.Value(c.Value)))
	}
	return filter
}

func unmarshalItem(av map[string]types.AttributeValue) (domain.Item, error) {
	item := map[string]any{}
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return domain.Item(item), nil
}
