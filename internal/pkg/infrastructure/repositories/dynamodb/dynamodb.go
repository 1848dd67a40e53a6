package dynamodb

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/diwise/entity-binder/pkg/binding/accessor"
	"github.com/diwise/entity-binder/pkg/binding/errors"
	"github.com/diwise/entity-binder/pkg/binding/metadata"
	"github.com/diwise/entity-binder/pkg/binding/repository"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("entity-binder/repositories/dynamodb")

//go:generate moq -rm -out dynamodb_mock.go . DynamoDBAPI

// DynamoDBAPI is the subset of the DynamoDB client used by the repository
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
}

type Config struct {
	region      string
	accessKey   string
	secretKey   string
	endpoint    string
	tablePrefix string
}

func LoadConfiguration(ctx context.Context) Config {
	return Config{
		region:      env.GetVariableOrDefault(ctx, "AWS_REGION", "eu-north-1"),
		accessKey:   env.GetVariableOrDefault(ctx, "AWS_ACCESS_KEY_ID", ""),
		secretKey:   env.GetVariableOrDefault(ctx, "AWS_SECRET_ACCESS_KEY", ""),
		endpoint:    env.GetVariableOrDefault(ctx, "DYNAMODB_ENDPOINT", ""),
		tablePrefix: env.GetVariableOrDefault(ctx, "DYNAMODB_TABLE_PREFIX", ""),
	}
}

// NewClient creates a DynamoDB client. Static credentials are used when an
// access key is configured, otherwise the default AWS credential chain applies.
func NewClient(ctx context.Context, cfg Config) (*sdk.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.region),
	}

	if cfg.accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.accessKey, cfg.secretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.endpoint)
		}
	}), nil
}

// Repository reads entities from DynamoDB tables. The table of an entity type
// is its descriptor table name with the configured prefix, and the partition
// (and optional sort) key attributes are the identifier columns.
type Repository struct {
	client DynamoDBAPI
	prefix string
	md     metadata.Provider
	pa     accessor.PropertyAccessor
}

func New(client DynamoDBAPI, cfg Config, md metadata.Provider, pa accessor.PropertyAccessor) *Repository {
	return &Repository{client: client, prefix: cfg.tablePrefix, md: md, pa: pa}
}

var _ repository.Repository = &Repository{}

func (r *Repository) Find(ctx context.Context, entityType string, id map[string]any) (any, error) {
	return r.FindOneBy(ctx, entityType, id)
}

func (r *Repository) FindOneBy(ctx context.Context, entityType string, criteria map[string]any) (entity any, err error) {
	ctx, span := tracer.Start(ctx, "find-one-by", trace.WithAttributes(attribute.String("entity.type", entityType)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	d, err := r.md.Descriptor(entityType)
	if err != nil {
		return nil, err
	}

	if d.Table == "" {
		return nil, fmt.Errorf("entity type %s is not mapped to a table", entityType)
	}

	columns, err := repository.Columns(d, criteria)
	if err != nil {
		return nil, err
	}

	attrs, err := attributevalue.MarshalMap(attributeValues(columns))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal criteria: %w", err)
	}

	table := r.prefix + d.Table

	var item map[string]types.AttributeValue
	if isPrimaryKey(d, criteria) {
		item, err = r.getItem(ctx, table, attrs)
	} else {
		item, err = r.scan(ctx, table, attrs)
	}
	if err != nil {
		return nil, err
	}

	if item == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no %s in %s matching %v", entityType, table, criteria))
	}

	row := map[string]any{}
	if err = attributevalue.UnmarshalMap(item, &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", entityType, err)
	}

	return repository.Hydrate(r.md, r.pa, entityType, row)
}

func (r *Repository) getItem(ctx context.Context, table string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	out, err := r.client.GetItem(ctx, &sdk.GetItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from %s: %w", table, err)
	}

	if len(out.Item) == 0 {
		return nil, nil
	}

	return out.Item, nil
}

func (r *Repository) scan(ctx context.Context, table string, attrs map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	filter, names, values := filterExpression(attrs)

	input := &sdk.ScanInput{
		TableName:                 aws.String(table),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}

	log := logging.GetFromContext(ctx)
	pages := 0

	paginator := sdk.NewScanPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		pages++

		if len(page.Items) > 0 {
			return page.Items[0], nil
		}
	}

	log.Debug("scan found no matching item", "table", table, "filter", filter, "pages", pages)

	return nil, nil
}

// filterExpression builds an equality filter over every attribute, using
// placeholders so that reserved words can be used as attribute names
func filterExpression(attrs map[string]types.AttributeValue) (string, map[string]string, map[string]types.AttributeValue) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	names := make(map[string]string, len(keys))
	values := make(map[string]types.AttributeValue, len(keys))
	filter := ""

	for i, k := range keys {
		name := fmt.Sprintf("#a%d", i)
		value := fmt.Sprintf(":v%d", i)

		names[name] = k
		values[value] = attrs[k]

		if i > 0 {
			filter += " AND "
		}
		filter += name + " = " + value
	}

	return filter, names, values
}

func isPrimaryKey(d *metadata.Descriptor, criteria map[string]any) bool {
	if len(d.Identifiers) == 0 || len(criteria) != len(d.Identifiers) {
		return false
	}

	for _, id := range d.Identifiers {
		if _, ok := criteria[id]; !ok {
			return false
		}
	}

	return true
}

func attributeValues(columns map[string]any) map[string]any {
	values := make(map[string]any, len(columns))

	for k, v := range columns {
		if id, ok := v.(uuid.UUID); ok {
			values[k] = id.String()
			continue
		}
		values[k] = v
	}

	return values
}
