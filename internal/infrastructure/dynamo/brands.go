package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/vehicle-market-api/internal/domain"
)

// BrandRepo provides typed DynamoDB operations for the brands table.
// The brand record is the single source of truth for the brand→category
// relationship; "brands of a category" is a query on category_id-index.
type BrandRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewBrandRepo(client *dynamodb.Client, tableName string) *BrandRepo {
	return &BrandRepo{client: client, tableName: tableName}
}

func (r *BrandRepo) Put(ctx context.Context, b *domain.Brand) error {
	item, err := attributevalue.MarshalMap(b)
	if err != nil {
		return fmt.Errorf("marshal brand: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *BrandRepo) Get(ctx context.Context, brandID string) (*domain.Brand, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("brand_id", brandID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("brand not found: %w", domain.ErrNotFound)
	}
	var b domain.Brand
	if err := attributevalue.UnmarshalMap(out.Item, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BrandRepo) GetByName(ctx context.Context, name string) (*domain.Brand, error) {
	out, err := r.queryIndex(ctx, "name-index", "name", name, 1)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("brand not found: %w", domain.ErrNotFound)
	}
	return &out[0], nil
}

// QueryByCategory returns every brand referencing the category.
func (r *BrandRepo) QueryByCategory(ctx context.Context, categoryID string) ([]domain.Brand, error) {
	return r.queryIndex(ctx, "category_id-index", "category_id", categoryID, 0)
}

func (r *BrandRepo) Scan(ctx context.Context) ([]domain.Brand, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
	if err != nil {
		return nil, err
	}
	var brands []domain.Brand
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &brands); err != nil {
		return nil, err
	}
	return brands, nil
}

func (r *BrandRepo) Update(ctx context.Context, brandID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	expr, names, values, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("brand_id", brandID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}

func (r *BrandRepo) HardDelete(ctx context.Context, brandID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("brand_id", brandID),
	})
	return err
}

func (r *BrandRepo) queryIndex(ctx context.Context, index, attr, value string, limit int32) ([]domain.Brand, error) {
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}
	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, err
	}
	var brands []domain.Brand
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &brands); err != nil {
		return nil, err
	}
	return brands, nil
}
