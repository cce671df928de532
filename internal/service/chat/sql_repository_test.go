package chat

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"clean-care-backend/internal/database"
	"clean-care-backend/internal/env"
	"clean-care-backend/internal/model"
)

func newSQLTestRepository(t *testing.T) Repository {
	t.Helper()
	db, err := database.OpenSQL(env.DriverSQLite, filepath.Join(t.TempDir(), "messages.db"))
	if err != nil {
		t.Fatalf("OpenSQL error: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	return NewSQLRepository(db)
}

func storedMessage(id, conversationID string, sender model.SenderType, senderID, text string, at time.Time) model.ChatMessageItem {
	return model.ChatMessageItem{
		PK:             model.MessagePK(conversationID, id),
		MessageID:      id,
		ChatType:       model.ChatTypeComplaint,
		ConversationID: conversationID,
		SenderType:     sender,
		SenderID:       senderID,
		Message:        text,
		CreatedAt:      at,
	}
}

func TestSQLRepositoryConversation(t *testing.T) {
	repo := newSQLTestRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)

	seed := []model.ChatMessageItem{
		storedMessage("m3", "c1", model.SenderCitizen, "u1", "third", base.Add(2*time.Minute)),
		storedMessage("m1", "c1", model.SenderCitizen, "u1", "first", base),
		storedMessage("m2", "c1", model.SenderAdmin, "a1", "second", base.Add(time.Minute)),
		storedMessage("x1", "c2", model.SenderCitizen, "u2", "other", base),
	}
	for _, msg := range seed {
		if err := repo.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage error: %v", err)
		}
	}
	if err := repo.AppendMessage(ctx, seed[0]); err == nil {
		t.Fatal("expected duplicate message id to fail")
	}

	messages, total, err := repo.ListMessages(ctx, model.ChatTypeComplaint, "c1", 0, 10)
	if err != nil {
		t.Fatalf("ListMessages error: %v", err)
	}
	if total != 3 || len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d/%d", len(messages), total)
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if messages[i].MessageID != want {
			t.Fatalf("message %d = %s, want %s", i, messages[i].MessageID, want)
		}
	}

	recent, err := repo.RecentBySender(ctx, model.ChatTypeComplaint, "c1", "u1", 1)
	if err != nil {
		t.Fatalf("RecentBySender error: %v", err)
	}
	if len(recent) != 1 || recent[0].MessageID != "m3" {
		t.Fatalf("expected newest citizen message, got %+v", recent)
	}

	live, total, err := repo.ListMessages(ctx, model.ChatTypeLive, "c1", 0, 10)
	if err != nil || total != 0 || len(live) != 0 {
		t.Fatalf("live chat must be separate, got %d messages (%v)", total, err)
	}
}

func TestSQLRepositoryReadFlags(t *testing.T) {
	repo := newSQLTestRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)

	for _, msg := range []model.ChatMessageItem{
		storedMessage("m1", "c1", model.SenderCitizen, "u1", "hi", base),
		storedMessage("m2", "c1", model.SenderBot, "", "welcome", base),
		storedMessage("m3", "c1", model.SenderAdmin, "a1", "hello", base.Add(time.Minute)),
	} {
		if err := repo.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage error: %v", err)
		}
	}

	citizenInbox := model.CounterpartSenders(model.SenderCitizen)
	updated, err := repo.MarkRead(ctx, model.ChatTypeComplaint, "c1", citizenInbox)
	if err != nil || updated != 2 {
		t.Fatalf("MarkRead = %d, %v; want 2", updated, err)
	}
	if again, _ := repo.MarkRead(ctx, model.ChatTypeComplaint, "c1", citizenInbox); again != 0 {
		t.Fatalf("second MarkRead changed %d rows", again)
	}

	unread, err := repo.CountUnread(ctx, model.ChatTypeComplaint, "c1", model.CounterpartSenders(model.SenderAdmin))
	if err != nil || unread != 1 {
		t.Fatalf("admin unread = %d, %v; want 1", unread, err)
	}
}
