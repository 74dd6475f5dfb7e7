// Package dynamoconn adapts DynamoDB PartiQL into a datapool dialer.
// Statements run through ExecuteStatement; params become PartiQL
// positional parameters.
package dynamoconn

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/goforj/datapool/poolcore"
)

// API captures the subset of DynamoDB client methods used by the dialer.
type API interface {
	ExecuteStatement(ctx context.Context, params *dynamodb.ExecuteStatementInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ExecuteStatementOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Config configures a DynamoDB-backed dialer.
type Config struct {
	// Client overrides the constructed client; leave nil to build one.
	Client API
	// Table is probed by liveness checks.
	Table string
	// Region selects the AWS region when constructing the client.
	Region string
	// Endpoint overrides the service endpoint (local DynamoDB).
	Endpoint string
}

// Dialer hands out logical DynamoDB connections. The client is a
// stateless HTTP front; each Conn shares it but is probed independently.
type Dialer struct {
	client API
	table  string
}

// New builds the client when one is not supplied.
func New(ctx context.Context, cfg Config) (*Dialer, error) {
	if cfg.Table == "" {
		return nil, errors.New("dynamo dialer requires a table for liveness probes")
	}
	if cfg.Client == nil {
		client, err := newClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		cfg.Client = client
	}
	return &Dialer{client: cfg.Client, table: cfg.Table}, nil
}

func newClient(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")),
	)
	if err != nil {
		return nil, err
	}
	if cfg.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: cfg.Endpoint, HostnameImmutable: true}, nil
		})
		if _, err := resolver.ResolveEndpoint("dynamodb", cfg.Region); err != nil {
			return nil, err
		}
		awsCfg.EndpointResolverWithOptions = resolver
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}

// Driver implements poolcore.Dialer.
func (d *Dialer) Driver() poolcore.Driver { return poolcore.DriverDynamo }

// Dial verifies the table is reachable and returns a logical connection.
func (d *Dialer) Dial(ctx context.Context) (poolcore.Conn, error) {
	c := &conn{client: d.client, table: d.table}
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

type conn struct {
	client API
	table  string
}

func (c *conn) Ping(ctx context.Context) error {
	_, err := c.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(c.table),
	})
	return err
}

func (c *conn) Query(ctx context.Context, statement string, params ...any) ([]poolcore.Row, error) {
	attrs, err := toAttributeValues(params)
	if err != nil {
		return nil, err
	}
	out, err := c.client.ExecuteStatement(ctx, &dynamodb.ExecuteStatementInput{
		Statement:  aws.String(statement),
		Parameters: attrs,
	})
	if err != nil {
		return nil, err
	}
	rows := make([]poolcore.Row, 0, len(out.Items))
	for _, item := range out.Items {
		row := make(poolcore.Row, len(item))
		for name, attr := range item {
			row[name] = attrValue(attr)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *conn) Close() error { return nil }

func toAttributeValues(params []any) ([]types.AttributeValue, error) {
	if len(params) == 0 {
		return nil, nil
	}
	out := make([]types.AttributeValue, 0, len(params))
	for i, p := range params {
		attr, err := toAttributeValue(p)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		out = append(out, attr)
	}
	return out, nil
}

func toAttributeValue(v any) (types.AttributeValue, error) {
	switch value := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: value}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: value}, nil
	case []byte:
		return &types.AttributeValueMemberB{Value: value}, nil
	case int:
		return &types.AttributeValueMemberN{Value: strconv.Itoa(value)}, nil
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(value, 10)}, nil
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(value, 'f', -1, 64)}, nil
	default:
		return nil, fmt.Errorf("unsupported parameter type %T", v)
	}
}

func attrValue(attr types.AttributeValue) any {
	switch value := attr.(type) {
	case *types.AttributeValueMemberS:
		return value.Value
	case *types.AttributeValueMemberN:
		if n, err := strconv.ParseFloat(value.Value, 64); err == nil {
			return n
		}
		return value.Value
	case *types.AttributeValueMemberBOOL:
		return value.Value
	case *types.AttributeValueMemberB:
		return value.Value
	case *types.AttributeValueMemberNULL:
		return nil
	case *types.AttributeValueMemberL:
		items := make([]any, 0, len(value.Value))
		for _, item := range value.Value {
			items = append(items, attrValue(item))
		}
		return items
	case *types.AttributeValueMemberM:
		m := make(map[string]any, len(value.Value))
		for k, item := range value.Value {
			m[k] = attrValue(item)
		}
		return m
	default:
		return attr
	}
}
