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

// ModelRepo provides typed DynamoDB operations for the vehicle models table.
type ModelRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewModelRepo(client *dynamodb.Client, tableName string) *ModelRepo {
	return &ModelRepo{client: client, tableName: tableName}
}

func (r *ModelRepo) Put(ctx context.Context, m *domain.VehicleModel) error {
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ModelRepo) Get(ctx context.Context, modelID string) (*domain.VehicleModel, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("model_id", modelID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("model not found: %w", domain.ErrNotFound)
	}
	var m domain.VehicleModel
	if err := attributevalue.UnmarshalMap(out.Item, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// QueryByBrand returns every model belonging to the brand.
func (r *ModelRepo) QueryByBrand(ctx context.Context, brandID string) ([]domain.VehicleModel, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("brand_id-index"),
		KeyConditionExpression:    aws.String("#b = :v"),
		ExpressionAttributeNames:  map[string]string{"#b": "brand_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: brandID}},
	})
	if err != nil {
		return nil, err
	}
	var models []domain.VehicleModel
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &models); err != nil {
		return nil, err
	}
	return models, nil
}

func (r *ModelRepo) Scan(ctx context.Context) ([]domain.VehicleModel, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
	if err != nil {
		return nil, err
	}
	var models []domain.VehicleModel
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &models); err != nil {
		return nil, err
	}
	return models, nil
}

func (r *ModelRepo) Update(ctx context.Context, modelID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	expr, names, values, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("model_id", modelID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}

func (r *ModelRepo) HardDelete(ctx context.Context, modelID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("model_id", modelID),
	})
	return err
}
