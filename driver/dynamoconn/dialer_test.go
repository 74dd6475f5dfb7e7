package dynamoconn

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type fakeAPI struct {
	describeErr error
	items       []map[string]types.AttributeValue
	lastInput   *dynamodb.ExecuteStatementInput
}

func (f *fakeAPI) ExecuteStatement(_ context.Context, in *dynamodb.ExecuteStatementInput, _ ...func(*dynamodb.Options)) (*dynamodb.ExecuteStatementOutput, error) {
	f.lastInput = in
	return &dynamodb.ExecuteStatementOutput{Items: f.items}, nil
}

func (f *fakeAPI) DescribeTable(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func TestNewRequiresTable(t *testing.T) {
	if _, err := New(context.Background(), Config{Client: &fakeAPI{}}); err == nil {
		t.Fatalf("expected error for missing table")
	}
}

func TestDialProbesTable(t *testing.T) {
	api := &fakeAPI{describeErr: errors.New("table not found")}
	dialer, err := New(context.Background(), Config{Client: api, Table: "positions"})
	if err != nil {
		t.Fatalf("new dialer failed: %v", err)
	}

	if _, err := dialer.Dial(context.Background()); err == nil {
		t.Fatalf("expected dial to fail when the table probe fails")
	}

	api.describeErr = nil
	conn, err := dialer.Dial(context.Background())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestQueryConvertsParametersAndItems(t *testing.T) {
	api := &fakeAPI{
		items: []map[string]types.AttributeValue{
			{
				"symbol": &types.AttributeValueMemberS{Value: "btc"},
				"qty":    &types.AttributeValueMemberN{Value: "2.5"},
				"open":   &types.AttributeValueMemberBOOL{Value: true},
				"tags": &types.AttributeValueMemberL{Value: []types.AttributeValue{
					&types.AttributeValueMemberS{Value: "swing"},
				}},
			},
		},
	}
	dialer, err := New(context.Background(), Config{Client: api, Table: "positions"})
	if err != nil {
		t.Fatalf("new dialer failed: %v", err)
	}
	conn, err := dialer.Dial(context.Background())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	rows, err := conn.Query(context.Background(), `SELECT * FROM positions WHERE symbol = ?`, "btc", 1, true)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if got := aws.ToString(api.lastInput.Statement); got != `SELECT * FROM positions WHERE symbol = ?` {
		t.Fatalf("unexpected statement: %q", got)
	}
	params := api.lastInput.Parameters
	if len(params) != 3 {
		t.Fatalf("expected 3 parameters, got %d", len(params))
	}
	if s, ok := params[0].(*types.AttributeValueMemberS); !ok || s.Value != "btc" {
		t.Fatalf("string parameter mis-converted: %#v", params[0])
	}
	if n, ok := params[1].(*types.AttributeValueMemberN); !ok || n.Value != "1" {
		t.Fatalf("int parameter mis-converted: %#v", params[1])
	}
	if b, ok := params[2].(*types.AttributeValueMemberBOOL); !ok || !b.Value {
		t.Fatalf("bool parameter mis-converted: %#v", params[2])
	}

	if len(rows) != 1 {
		t.Fatalf("expected one row, got %v", rows)
	}
	row := rows[0]
	if row["symbol"] != "btc" || row["qty"] != 2.5 || row["open"] != true {
		t.Fatalf("item mis-converted: %v", row)
	}
	tags, ok := row["tags"].([]any)
	if !ok || len(tags) != 1 || tags[0] != "swing" {
		t.Fatalf("list attribute mis-converted: %v", row["tags"])
	}
}

func TestQueryRejectsUnsupportedParameter(t *testing.T) {
	dialer, err := New(context.Background(), Config{Client: &fakeAPI{}, Table: "positions"})
	if err != nil {
		t.Fatalf("new dialer failed: %v", err)
	}
	conn, err := dialer.Dial(context.Background())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	if _, err := conn.Query(context.Background(), "SELECT 1", struct{}{}); err == nil {
		t.Fatalf("expected error for unsupported parameter type")
	}
}
