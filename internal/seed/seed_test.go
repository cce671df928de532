package seed

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"clean-care-backend/internal/database"
	"clean-care-backend/internal/env"
	"clean-care-backend/internal/model"
	botservice "clean-care-backend/internal/service/bot"
)

func newBotService(t *testing.T) *botservice.Service {
	t.Helper()
	db, err := database.OpenSQL(env.DriverSQLite, filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatalf("OpenSQL error: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	return botservice.NewWithRepository(botservice.NewSQLRepository(db), time.Now)
}

func TestDefaultsAreContiguous(t *testing.T) {
	steps := map[model.ChatType][]int{}
	for _, msg := range Defaults().Messages {
		steps[msg.ChatType] = append(steps[msg.ChatType], msg.StepNumber)
		if msg.ContentLocalized == "" {
			t.Fatalf("%s has no translation", msg.MessageKey)
		}
	}
	for chatType, got := range steps {
		for i, step := range got {
			if step != i+1 {
				t.Fatalf("%s steps = %v, want 1..n", chatType, got)
			}
		}
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	svc := newBotService(t)
	ctx := context.Background()

	first, err := Apply(ctx, svc, Defaults())
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if first.Created != 6 || first.Updated != 0 || first.Rules != 2 {
		t.Fatalf("first run = %+v", first)
	}

	inactive := false
	if _, err := svc.UpdateMessage(ctx, model.ChatTypeLive, "live_chat_welcome", botservice.UpdateMessageParams{IsActive: &inactive}); err != nil {
		t.Fatalf("UpdateMessage error: %v", err)
	}

	second, err := Apply(ctx, svc, Defaults())
	if err != nil {
		t.Fatalf("second Apply error: %v", err)
	}
	if second.Created != 0 || second.Updated != 6 {
		t.Fatalf("second run = %+v", second)
	}

	messages, err := svc.ListMessages(ctx, model.ChatTypeLive)
	if err != nil {
		t.Fatalf("ListMessages error: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 live chat messages, got %d", len(messages))
	}
	for _, msg := range messages {
		if !msg.IsActive {
			t.Fatalf("%s should be reactivated", msg.MessageKey)
		}
	}

	rule, stored, err := svc.GetRule(ctx, model.ChatTypeComplaint)
	if err != nil {
		t.Fatalf("GetRule error: %v", err)
	}
	if !stored || !rule.IsEnabled || rule.ReactivationThreshold != model.DefaultReactivationThreshold {
		t.Fatalf("unexpected rule %+v", rule)
	}
}
