package bot

import (
	"clean-care-backend/internal/database"
	"clean-care-backend/internal/model"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	ErrNotFound = errors.New("bot repository: not found")
	// ErrConflict is returned when a conditional write loses against a
	// concurrent writer, or when a create finds the key already taken.
	ErrConflict = errors.New("bot repository: conflict")
)

// AnalyticsFilter bounds an analytics listing. Empty fields are open.
// Dates use the YYYY-MM-DD form stored on analytics rows.
type AnalyticsFilter struct {
	ChatType  model.ChatType
	StartDate string
	EndDate   string
}

type Repository interface {
	GetTriggerRule(ctx context.Context, chatType model.ChatType) (model.BotTriggerRuleItem, error)
	PutTriggerRule(ctx context.Context, rule model.BotTriggerRuleItem) error

	ListBotMessages(ctx context.Context, chatType model.ChatType) ([]model.BotMessageConfigItem, error)
	GetBotMessage(ctx context.Context, chatType model.ChatType, messageKey string) (model.BotMessageConfigItem, error)
	CreateBotMessage(ctx context.Context, msg model.BotMessageConfigItem) error
	PutBotMessage(ctx context.Context, msg model.BotMessageConfigItem) error
	DeleteBotMessage(ctx context.Context, chatType model.ChatType, messageKey string) error

	GetConversationState(ctx context.Context, chatType model.ChatType, conversationID string) (model.BotConversationStateItem, error)
	CreateConversationState(ctx context.Context, state model.BotConversationStateItem) error
	// UpdateConversationState replaces the stored state only if its version
	// still equals expectedVersion.
	UpdateConversationState(ctx context.Context, state model.BotConversationStateItem, expectedVersion int64) error

	IncrementAnalytics(ctx context.Context, row model.BotAnalyticsItem) error
	ListAnalytics(ctx context.Context, filter AnalyticsFilter) ([]model.BotAnalyticsItem, error)
}

// NewRepository picks the implementation matching the configured store.
func NewRepository(db *database.Database) Repository {
	if db.IsSQL() {
		return NewSQLRepository(db.SQL)
	}
	return NewDynamoRepository(db)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) GetTriggerRule(ctx context.Context, chatType model.ChatType) (model.BotTriggerRuleItem, error) {
	var rule model.BotTriggerRuleItem
	err := r.db.Client.GetItem(
		ctx,
		model.BotTriggerRulesTable,
		map[string]types.AttributeValue{
			"chatType": database.AttrString(string(chatType)),
		},
		&rule,
	)
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return model.BotTriggerRuleItem{}, ErrNotFound
		}
		return model.BotTriggerRuleItem{}, err
	}
	return rule, nil
}

func (r *DynamoRepository) PutTriggerRule(ctx context.Context, rule model.BotTriggerRuleItem) error {
	return r.db.Client.PutItem(ctx, model.BotTriggerRulesTable, rule)
}

func (r *DynamoRepository) ListBotMessages(ctx context.Context, chatType model.ChatType) ([]model.BotMessageConfigItem, error) {
	items, err := r.db.Client.QueryOrScan(
		ctx,
		model.BotMessagesTable,
		"byChatType",
		"chatType",
		database.AttrString(string(chatType)),
		nil,
	)
	if err != nil {
		return nil, err
	}

	var messages []model.BotMessageConfigItem
	if err := attributevalue.UnmarshalListOfMaps(items, &messages); err != nil {
		return nil, fmt.Errorf("unmarshal bot messages: %w", err)
	}
	return messages, nil
}

func (r *DynamoRepository) GetBotMessage(ctx context.Context, chatType model.ChatType, messageKey string) (model.BotMessageConfigItem, error) {
	var msg model.BotMessageConfigItem
	err := r.db.Client.GetItem(
		ctx,
		model.BotMessagesTable,
		map[string]types.AttributeValue{
			"pk": database.AttrString(model.BotMessagePK(chatType, messageKey)),
		},
		&msg,
	)
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return model.BotMessageConfigItem{}, ErrNotFound
		}
		return model.BotMessageConfigItem{}, err
	}
	return msg, nil
}

func (r *DynamoRepository) CreateBotMessage(ctx context.Context, msg model.BotMessageConfigItem) error {
	err := r.db.Client.PutItemIf(ctx, model.BotMessagesTable, msg, "attribute_not_exists(pk)", nil, nil)
	if database.IsConditionalCheckFailed(err) {
		return ErrConflict
	}
	return err
}

func (r *DynamoRepository) PutBotMessage(ctx context.Context, msg model.BotMessageConfigItem) error {
	return r.db.Client.PutItem(ctx, model.BotMessagesTable, msg)
}

func (r *DynamoRepository) DeleteBotMessage(ctx context.Context, chatType model.ChatType, messageKey string) error {
	if _, err := r.GetBotMessage(ctx, chatType, messageKey); err != nil {
		return err
	}
	return r.db.Client.DeleteItem(
		ctx,
		model.BotMessagesTable,
		map[string]types.AttributeValue{
			"pk": database.AttrString(model.BotMessagePK(chatType, messageKey)),
		},
	)
}

func (r *DynamoRepository) GetConversationState(ctx context.Context, chatType model.ChatType, conversationID string) (model.BotConversationStateItem, error) {
	var state model.BotConversationStateItem
	err := r.db.Client.GetItem(
		ctx,
		model.BotConversationStatesTable,
		map[string]types.AttributeValue{
			"pk": database.AttrString(model.ConversationStatePK(chatType, conversationID)),
		},
		&state,
	)
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return model.BotConversationStateItem{}, ErrNotFound
		}
		return model.BotConversationStateItem{}, err
	}
	return state, nil
}

func (r *DynamoRepository) CreateConversationState(ctx context.Context, state model.BotConversationStateItem) error {
	err := r.db.Client.PutItemIf(ctx, model.BotConversationStatesTable, state, "attribute_not_exists(pk)", nil, nil)
	if database.IsConditionalCheckFailed(err) {
		return ErrConflict
	}
	return err
}

func (r *DynamoRepository) UpdateConversationState(ctx context.Context, state model.BotConversationStateItem, expectedVersion int64) error {
	err := r.db.Client.PutItemIf(
		ctx,
		model.BotConversationStatesTable,
		state,
		"#version = :expected",
		map[string]types.AttributeValue{
			":expected": database.AttrNumber(expectedVersion),
		},
		map[string]string{
			"#version": "version",
		},
	)
	if database.IsConditionalCheckFailed(err) {
		return ErrConflict
	}
	return err
}

func (r *DynamoRepository) IncrementAnalytics(ctx context.Context, row model.BotAnalyticsItem) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.BotAnalyticsTable,
		map[string]types.AttributeValue{
			"pk": database.AttrString(model.BotAnalyticsPK(row.ChatType, row.MessageKey, row.Date)),
		},
		"SET #chatType = :chatType, #messageKey = :messageKey, #stepNumber = :stepNumber, #date = :date "+
			"ADD #triggerCount :triggers, #adminReplyCount :replies",
		map[string]types.AttributeValue{
			":chatType":   database.AttrString(string(row.ChatType)),
			":messageKey": database.AttrString(row.MessageKey),
			":stepNumber": database.AttrNumber(int64(row.StepNumber)),
			":date":       database.AttrString(row.Date),
			":triggers":   database.AttrNumber(int64(row.TriggerCount)),
			":replies":    database.AttrNumber(int64(row.AdminReplyCount)),
		},
		map[string]string{
			"#chatType":        "chatType",
			"#messageKey":      "messageKey",
			"#stepNumber":      "stepNumber",
			"#date":            "date",
			"#triggerCount":    "triggerCount",
			"#adminReplyCount": "adminReplyCount",
		},
		nil,
	)
}

func (r *DynamoRepository) ListAnalytics(ctx context.Context, filter AnalyticsFilter) ([]model.BotAnalyticsItem, error) {
	var conditions []string
	values := map[string]types.AttributeValue{}
	names := map[string]string{}

	if filter.ChatType != "" {
		conditions = append(conditions, "#chatType = :chatType")
		values[":chatType"] = database.AttrString(string(filter.ChatType))
		names["#chatType"] = "chatType"
	}
	if filter.StartDate != "" {
		conditions = append(conditions, "#date >= :start")
		values[":start"] = database.AttrString(filter.StartDate)
		names["#date"] = "date"
	}
	if filter.EndDate != "" {
		conditions = append(conditions, "#date <= :end")
		values[":end"] = database.AttrString(filter.EndDate)
		names["#date"] = "date"
	}

	var (
		items []map[string]types.AttributeValue
		err   error
	)
	if len(conditions) == 0 {
		items, err = r.db.Client.ScanAllWithFilter(ctx, model.BotAnalyticsTable, "", nil, nil)
	} else {
		items, err = r.db.Client.ScanAllWithFilter(ctx, model.BotAnalyticsTable, strings.Join(conditions, " AND "), values, names)
	}
	if err != nil {
		return nil, err
	}

	var rows []model.BotAnalyticsItem
	if err := attributevalue.UnmarshalListOfMaps(items, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal bot analytics: %w", err)
	}
	return rows, nil
}
