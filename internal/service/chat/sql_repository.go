package chat

import (
	"clean-care-backend/internal/database"
	"clean-care-backend/internal/model"
	"context"

	"gorm.io/gorm"
)

type SQLRepository struct {
	db *gorm.DB
}

func NewSQLRepository(db *gorm.DB) Repository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) table(ctx context.Context, chatType model.ChatType) *gorm.DB {
	return r.db.WithContext(ctx).Table(database.SQLMessagesTable(chatType))
}

func (r *SQLRepository) AppendMessage(ctx context.Context, msg model.ChatMessageItem) error {
	return r.table(ctx, msg.ChatType).Create(&msg).Error
}

func (r *SQLRepository) ListMessages(ctx context.Context, chatType model.ChatType, conversationID string, offset, limit int) ([]model.ChatMessageItem, int, error) {
	var total int64
	if err := r.table(ctx, chatType).Where("conversation_id = ?", conversationID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	messages := []model.ChatMessageItem{}
	err := r.table(ctx, chatType).
		Where("conversation_id = ?", conversationID).
		Order("created_at, message_id").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	return messages, int(total), err
}

func (r *SQLRepository) RecentBySender(ctx context.Context, chatType model.ChatType, conversationID, senderID string, limit int) ([]model.ChatMessageItem, error) {
	var messages []model.ChatMessageItem
	err := r.table(ctx, chatType).
		Where("conversation_id = ? AND sender_id = ?", conversationID, senderID).
		Order("created_at DESC, message_id DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *SQLRepository) MarkRead(ctx context.Context, chatType model.ChatType, conversationID string, senders []model.SenderType) (int, error) {
	res := r.table(ctx, chatType).
		Where("conversation_id = ? AND sender_type IN ? AND read = ?", conversationID, senders, false).
		Update("read", true)
	return int(res.RowsAffected), res.Error
}

func (r *SQLRepository) CountUnread(ctx context.Context, chatType model.ChatType, conversationID string, senders []model.SenderType) (int, error) {
	var count int64
	err := r.table(ctx, chatType).
		Where("conversation_id = ? AND sender_type IN ? AND read = ?", conversationID, senders, false).
		Count(&count).Error
	return int(count), err
}
