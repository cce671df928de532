package bot

import (
	"clean-care-backend/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLRepository stores bot configuration and state through gorm. It backs
// both the postgres and the sqlite drivers.
type SQLRepository struct {
	db *gorm.DB
}

func NewSQLRepository(db *gorm.DB) Repository {
	return &SQLRepository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (r *SQLRepository) GetTriggerRule(ctx context.Context, chatType model.ChatType) (model.BotTriggerRuleItem, error) {
	var rule model.BotTriggerRuleItem
	err := r.db.WithContext(ctx).Where("chat_type = ?", chatType).Take(&rule).Error
	if err != nil {
		return model.BotTriggerRuleItem{}, notFound(err)
	}
	return rule, nil
}

func (r *SQLRepository) PutTriggerRule(ctx context.Context, rule model.BotTriggerRuleItem) error {
	return r.db.WithContext(ctx).Save(&rule).Error
}

func (r *SQLRepository) ListBotMessages(ctx context.Context, chatType model.ChatType) ([]model.BotMessageConfigItem, error) {
	var messages []model.BotMessageConfigItem
	err := r.db.WithContext(ctx).
		Where("chat_type = ?", chatType).
		Order("step_number, display_order, message_key").
		Find(&messages).Error
	return messages, err
}

func (r *SQLRepository) GetBotMessage(ctx context.Context, chatType model.ChatType, messageKey string) (model.BotMessageConfigItem, error) {
	var msg model.BotMessageConfigItem
	err := r.db.WithContext(ctx).Where("pk = ?", model.BotMessagePK(chatType, messageKey)).Take(&msg).Error
	if err != nil {
		return model.BotMessageConfigItem{}, notFound(err)
	}
	return msg, nil
}

func (r *SQLRepository) CreateBotMessage(ctx context.Context, msg model.BotMessageConfigItem) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&msg)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *SQLRepository) PutBotMessage(ctx context.Context, msg model.BotMessageConfigItem) error {
	return r.db.WithContext(ctx).Save(&msg).Error
}

func (r *SQLRepository) DeleteBotMessage(ctx context.Context, chatType model.ChatType, messageKey string) error {
	res := r.db.WithContext(ctx).
		Where("pk = ?", model.BotMessagePK(chatType, messageKey)).
		Delete(&model.BotMessageConfigItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepository) GetConversationState(ctx context.Context, chatType model.ChatType, conversationID string) (model.BotConversationStateItem, error) {
	var state model.BotConversationStateItem
	err := r.db.WithContext(ctx).
		Where("pk = ?", model.ConversationStatePK(chatType, conversationID)).
		Take(&state).Error
	if err != nil {
		return model.BotConversationStateItem{}, notFound(err)
	}
	return state, nil
}

func (r *SQLRepository) CreateConversationState(ctx context.Context, state model.BotConversationStateItem) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&state)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *SQLRepository) UpdateConversationState(ctx context.Context, state model.BotConversationStateItem, expectedVersion int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.BotConversationStateItem{}).
		Where("pk = ? AND version = ?", state.PK, expectedVersion).
		Updates(map[string]interface{}{
			"current_step":        state.CurrentStep,
			"is_active":           state.IsActive,
			"last_admin_reply_at": state.LastAdminReplyAt,
			"user_message_count":  state.UserMessageCount,
			"last_bot_message_at": state.LastBotMessageAt,
			"version":             state.Version,
			"updated_at":          state.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *SQLRepository) IncrementAnalytics(ctx context.Context, row model.BotAnalyticsItem) error {
	row.PK = model.BotAnalyticsPK(row.ChatType, row.MessageKey, row.Date)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "pk"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"trigger_count":     gorm.Expr("bot_analytics.trigger_count + ?", row.TriggerCount),
			"admin_reply_count": gorm.Expr("bot_analytics.admin_reply_count + ?", row.AdminReplyCount),
		}),
	}).Create(&row).Error
}

func (r *SQLRepository) ListAnalytics(ctx context.Context, filter AnalyticsFilter) ([]model.BotAnalyticsItem, error) {
	query := r.db.WithContext(ctx).Model(&model.BotAnalyticsItem{})
	if filter.ChatType != "" {
		query = query.Where("chat_type = ?", filter.ChatType)
	}
	if filter.StartDate != "" {
		query = query.Where("date >= ?", filter.StartDate)
	}
	if filter.EndDate != "" {
		query = query.Where("date <= ?", filter.EndDate)
	}

	var rows []model.BotAnalyticsItem
	err := query.Order("date, step_number").Find(&rows).Error
	return rows, err
}
