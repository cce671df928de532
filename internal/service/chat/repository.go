package chat

import (
	"clean-care-backend/internal/database"
	"clean-care-backend/internal/model"
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Repository stores the messages of one conversation per (chatType,
// conversationId). Each chat type has its own table.
type Repository interface {
	AppendMessage(ctx context.Context, msg model.ChatMessageItem) error
	// ListMessages returns one page of messages oldest first, plus the total
	// number of messages in the conversation.
	ListMessages(ctx context.Context, chatType model.ChatType, conversationID string, offset, limit int) ([]model.ChatMessageItem, int, error)
	// RecentBySender returns up to limit messages of senderID, newest first.
	RecentBySender(ctx context.Context, chatType model.ChatType, conversationID, senderID string, limit int) ([]model.ChatMessageItem, error)
	MarkRead(ctx context.Context, chatType model.ChatType, conversationID string, senders []model.SenderType) (int, error)
	CountUnread(ctx context.Context, chatType model.ChatType, conversationID string, senders []model.SenderType) (int, error)
}

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

func (r *DynamoRepository) AppendMessage(ctx context.Context, msg model.ChatMessageItem) error {
	return r.db.Client.PutItemIf(ctx, model.MessagesTable(msg.ChatType), msg, "attribute_not_exists(pk)", nil, nil)
}

func (r *DynamoRepository) conversation(ctx context.Context, chatType model.ChatType, conversationID string) ([]model.ChatMessageItem, error) {
	items, err := r.db.Client.QueryOrScan(
		ctx,
		model.MessagesTable(chatType),
		"byConversation",
		"conversationId",
		database.AttrString(conversationID),
		aws.Bool(true),
	)
	if err != nil {
		return nil, err
	}

	var messages []model.ChatMessageItem
	if err := attributevalue.UnmarshalListOfMaps(items, &messages); err != nil {
		return nil, fmt.Errorf("unmarshal chat messages: %w", err)
	}
	sortOldestFirst(messages)
	return messages, nil
}

func (r *DynamoRepository) ListMessages(ctx context.Context, chatType model.ChatType, conversationID string, offset, limit int) ([]model.ChatMessageItem, int, error) {
	messages, err := r.conversation(ctx, chatType, conversationID)
	if err != nil {
		return nil, 0, err
	}
	return page(messages, offset, limit), len(messages), nil
}

func (r *DynamoRepository) RecentBySender(ctx context.Context, chatType model.ChatType, conversationID, senderID string, limit int) ([]model.ChatMessageItem, error) {
	messages, err := r.conversation(ctx, chatType, conversationID)
	if err != nil {
		return nil, err
	}

	var recent []model.ChatMessageItem
	for i := len(messages) - 1; i >= 0 && len(recent) < limit; i-- {
		if messages[i].SenderID == senderID {
			recent = append(recent, messages[i])
		}
	}
	return recent, nil
}

func (r *DynamoRepository) MarkRead(ctx context.Context, chatType model.ChatType, conversationID string, senders []model.SenderType) (int, error) {
	messages, err := r.conversation(ctx, chatType, conversationID)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, msg := range messages {
		if msg.Read || !senderIn(msg.SenderType, senders) {
			continue
		}
		err := r.db.Client.UpdateItem(
			ctx,
			model.MessagesTable(chatType),
			map[string]types.AttributeValue{
				"pk": database.AttrString(msg.PK),
			},
			"SET #read = :read",
			map[string]types.AttributeValue{
				":read": database.AttrBool(true),
			},
			map[string]string{
				"#read": "read",
			},
			nil,
		)
		if err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

func (r *DynamoRepository) CountUnread(ctx context.Context, chatType model.ChatType, conversationID string, senders []model.SenderType) (int, error) {
	messages, err := r.conversation(ctx, chatType, conversationID)
	if err != nil {
		return 0, err
	}
	unread := 0
	for _, msg := range messages {
		if !msg.Read && senderIn(msg.SenderType, senders) {
			unread++
		}
	}
	return unread, nil
}

func sortOldestFirst(messages []model.ChatMessageItem) {
	sort.SliceStable(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return messages[i].MessageID < messages[j].MessageID
	})
}

func page(messages []model.ChatMessageItem, offset, limit int) []model.ChatMessageItem {
	if offset >= len(messages) {
		return []model.ChatMessageItem{}
	}
	end := offset + limit
	if end > len(messages) {
		end = len(messages)
	}
	return messages[offset:end]
}

func senderIn(sender model.SenderType, senders []model.SenderType) bool {
	for _, s := range senders {
		if s == sender {
			return true
		}
	}
	return false
}
