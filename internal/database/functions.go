package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

var ErrItemNotFound = errors.New("item not found")

func AttrString(value string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: value}
}

func AttrNumber(value int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", value)}
}

func AttrBool(value bool) types.AttributeValue {
	return &types.AttributeValueMemberBOOL{Value: value}
}

// IsConditionalCheckFailed reports whether a conditional write was rejected.
func IsConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func IsIndexNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException" {
		return strings.Contains(strings.ToLower(apiErr.ErrorMessage()), "index")
	}
	return false
}

func (c *DynamoDBClient) PutItem(
	ctx context.Context,
	tableName string,
	item interface{},
) error {
	return c.PutItemIf(ctx, tableName, item, "", nil, nil)
}

// PutItemIf writes item only when condExpr holds. An empty condExpr writes
// unconditionally.
func (c *DynamoDBClient) PutItemIf(
	ctx context.Context,
	tableName string,
	item interface{},
	condExpr string,
	exprAttrValues map[string]types.AttributeValue,
	exprAttrNames map[string]string,
) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      av,
	}
	if condExpr != "" {
		input.ConditionExpression = aws.String(condExpr)
		if len(exprAttrValues) > 0 {
			input.ExpressionAttributeValues = exprAttrValues
		}
		if len(exprAttrNames) > 0 {
			input.ExpressionAttributeNames = exprAttrNames
		}
	}

	_, err = c.svc.PutItem(ctx, input)
	if err != nil {
		return fmt.Errorf("put item %s: %w", tableName, err)
	}
	return nil
}

func (c *DynamoDBClient) GetItem(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
	out interface{},
) error {
	input := &dynamodb.GetItemInput{
		TableName:      aws.String(tableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	}

	res, err := c.svc.GetItem(ctx, input)
	if err != nil {
		return fmt.Errorf("get item %s: %w", tableName, err)
	}
	if res.Item == nil {
		return fmt.Errorf("%w in %s", ErrItemNotFound, tableName)
	}

	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("unmarshal item: %w", err)
	}
	return nil
}

func (c *DynamoDBClient) UpdateItem(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
	updateExpr string,
	exprAttrValues map[string]types.AttributeValue,
	exprAttrNames map[string]string,
	out interface{},
) error {
	return c.UpdateItemIf(ctx, tableName, key, updateExpr, "", exprAttrValues, exprAttrNames, out)
}

func (c *DynamoDBClient) UpdateItemIf(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
	updateExpr string,
	condExpr string,
	exprAttrValues map[string]types.AttributeValue,
	exprAttrNames map[string]string,
	out interface{},
) error {
	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(tableName),
		Key:                       key,
		UpdateExpression:          aws.String(updateExpr),
		ExpressionAttributeValues: exprAttrValues,
		ExpressionAttributeNames:  exprAttrNames,
		ReturnValues:              types.ReturnValueAllNew,
	}
	if condExpr != "" {
		input.ConditionExpression = aws.String(condExpr)
	}

	res, err := c.svc.UpdateItem(ctx, input)
	if err != nil {
		return fmt.Errorf("update item %s: %w", tableName, err)
	}

	if out != nil {
		if err := attributevalue.UnmarshalMap(res.Attributes, out); err != nil {
			return fmt.Errorf("unmarshal updated item: %w", err)
		}
	}
	return nil
}

func (c *DynamoDBClient) DeleteItem(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key:       key,
	}

	_, err := c.svc.DeleteItem(ctx, input)
	if err != nil {
		return fmt.Errorf("delete item %s: %w", tableName, err)
	}
	return nil
}

// QueryAll performs a complete query, handling pagination internally.
func (c *DynamoDBClient) QueryAll(
	ctx context.Context,
	tableName string,
	indexName *string,
	keyCondExpr string,
	exprAttrValues map[string]types.AttributeValue,
	exprAttrNames map[string]string,
	scanIndexForward *bool,
) ([]map[string]types.AttributeValue, error) {
	var allItems []map[string]types.AttributeValue
	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(tableName),
			KeyConditionExpression:    aws.String(keyCondExpr),
			ExpressionAttributeValues: exprAttrValues,
		}

		if indexName != nil {
			input.IndexName = indexName
		}
		if exprAttrNames != nil {
			input.ExpressionAttributeNames = exprAttrNames
		}
		if scanIndexForward != nil {
			input.ScanIndexForward = aws.Bool(*scanIndexForward)
		}
		if lastEvaluatedKey != nil {
			input.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := c.svc.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query all %s[%s]: %w", tableName, aws.ToString(indexName), err)
		}

		allItems = append(allItems, result.Items...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	return allItems, nil
}

func (c *DynamoDBClient) ScanAllWithFilter(
	ctx context.Context,
	tableName string,
	filterExpr string,
	exprAttrValues map[string]types.AttributeValue,
	exprAttrNames map[string]string,
) ([]map[string]types.AttributeValue, error) {
	var allItems []map[string]types.AttributeValue
	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName: aws.String(tableName),
		}
		if filterExpr != "" {
			input.FilterExpression = aws.String(filterExpr)
			input.ExpressionAttributeValues = exprAttrValues
		}
		if exprAttrNames != nil {
			input.ExpressionAttributeNames = exprAttrNames
		}
		if lastEvaluatedKey != nil {
			input.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := c.svc.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan all with filter %s: %w", tableName, err)
		}

		allItems = append(allItems, result.Items...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}
	return allItems, nil
}

// QueryOrScan queries indexName and falls back to a filtered scan of the base
// table when the index has not been provisioned.
func (c *DynamoDBClient) QueryOrScan(
	ctx context.Context,
	tableName string,
	indexName string,
	attrName string,
	value types.AttributeValue,
	scanIndexForward *bool,
) ([]map[string]types.AttributeValue, error) {
	items, err := c.QueryAll(
		ctx,
		tableName,
		aws.String(indexName),
		"#k = :k",
		map[string]types.AttributeValue{":k": value},
		map[string]string{"#k": attrName},
		scanIndexForward,
	)
	if err == nil {
		return items, nil
	}
	if !IsIndexNotFound(err) {
		return nil, err
	}

	return c.ScanAllWithFilter(
		ctx,
		tableName,
		"#k = :k",
		map[string]types.AttributeValue{":k": value},
		map[string]string{"#k": attrName},
	)
}
