package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"clean-care-backend/internal/model"
)

func boolPtr(v bool) *bool { return &v }

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func codeOf(err error) ErrorCode {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ""
}

func TestCreateMessageValidation(t *testing.T) {
	svc := NewWithRepository(newMemoryRepository(), nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		params CreateMessageParams
	}{
		{"missing key", CreateMessageParams{ChatType: model.ChatTypeLive, Content: "hi", StepNumber: 1}},
		{"bad chat type", CreateMessageParams{ChatType: "SMS", MessageKey: "k", Content: "hi", StepNumber: 1}},
		{"zero step", CreateMessageParams{ChatType: model.ChatTypeLive, MessageKey: "k", Content: "hi"}},
		{"blank content", CreateMessageParams{ChatType: model.ChatTypeLive, MessageKey: "k", Content: "   ", StepNumber: 1}},
		{"separator in key", CreateMessageParams{ChatType: model.ChatTypeLive, MessageKey: "a#b", Content: "hi", StepNumber: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateMessage(ctx, tt.params)
			if codeOf(err) != ErrorCodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateMessageRejectsDuplicateKey(t *testing.T) {
	svc := NewWithRepository(newMemoryRepository(), nil)
	ctx := context.Background()
	params := CreateMessageParams{ChatType: model.ChatTypeLive, MessageKey: "welcome", Content: "hi", StepNumber: 1}

	msg, err := svc.CreateMessage(ctx, params)
	if err != nil {
		t.Fatalf("CreateMessage error: %v", err)
	}
	if !msg.IsActive || msg.PK != "LIVE_CHAT#welcome" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if _, err := svc.CreateMessage(ctx, params); codeOf(err) != ErrorCodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCatalogEditsReachOrchestratorImmediately(t *testing.T) {
	f := newFixture(t, defaultRule())
	ctx := context.Background()

	f.citizen(t)

	updated, err := f.svc.UpdateMessage(ctx, model.ChatTypeLive, "team", UpdateMessageParams{Content: strPtr("Edited")})
	if err != nil {
		t.Fatalf("UpdateMessage error: %v", err)
	}
	if updated.Content != "Edited" || !updated.UpdatedAt.Equal(f.now) {
		t.Fatalf("unexpected update %+v", updated)
	}

	f.citizen(t)
	if got := f.appender.texts[1]; got != "Edited" {
		t.Fatalf("orchestrator used stale catalog: %q", got)
	}

	if err := f.svc.DeleteMessage(ctx, model.ChatTypeLive, "hours"); err != nil {
		t.Fatalf("DeleteMessage error: %v", err)
	}
	if d := f.citizen(t); d.Outcome != OutcomeExhausted {
		t.Fatalf("deleted step should not be sent, got %s", d.Outcome)
	}
}

func TestUpdateAndDeleteMissingMessage(t *testing.T) {
	svc := NewWithRepository(newMemoryRepository(), nil)
	ctx := context.Background()

	if _, err := svc.UpdateMessage(ctx, model.ChatTypeLive, "nope", UpdateMessageParams{IsActive: boolPtr(false)}); codeOf(err) != ErrorCodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.DeleteMessage(ctx, model.ChatTypeLive, "nope"); codeOf(err) != ErrorCodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.UpdateMessage(ctx, model.ChatTypeLive, "nope", UpdateMessageParams{StepNumber: intPtr(0)}); codeOf(err) != ErrorCodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListMessagesPutsInactiveLast(t *testing.T) {
	repo := newMemoryRepository()
	repo.addMessage(model.ChatTypeLive, "two", 2, 0, "2")
	repo.addMessage(model.ChatTypeLive, "one", 1, 0, "1")
	repo.addMessage(model.ChatTypeLive, "old", 1, 0, "old")
	repo.messages[model.BotMessagePK(model.ChatTypeLive, "old")] = model.BotMessageConfigItem{
		PK: model.BotMessagePK(model.ChatTypeLive, "old"), ChatType: model.ChatTypeLive, MessageKey: "old", StepNumber: 1,
	}
	repo.addMessage(model.ChatTypeComplaint, "other", 1, 0, "x")

	msgs, err := NewWithRepository(repo, nil).ListMessages(context.Background(), model.ChatTypeLive)
	if err != nil {
		t.Fatalf("ListMessages error: %v", err)
	}
	if len(msgs) != 3 || msgs[0].MessageKey != "one" || msgs[1].MessageKey != "two" || msgs[2].MessageKey != "old" {
		t.Fatalf("unexpected order %+v", msgs)
	}
}

func TestRuleDefaultsAndUpsert(t *testing.T) {
	f := newFixture(t, defaultRule())
	delete(f.repo.rules, model.ChatTypeLive)
	ctx := context.Background()

	rule, stored, err := f.svc.GetRule(ctx, model.ChatTypeComplaint)
	if err != nil {
		t.Fatalf("GetRule error: %v", err)
	}
	if stored || !rule.IsEnabled || rule.ReactivationThreshold != 5 || rule.ResetStepsOnReactivate {
		t.Fatalf("unexpected defaults %+v stored=%v", rule, stored)
	}

	if _, err := f.svc.UpsertRule(ctx, model.ChatTypeLive, RulePatch{ReactivationThreshold: intPtr(0)}); codeOf(err) != ErrorCodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	// the orchestrator caches the missing rule first
	if d := f.citizen(t); d.Outcome != OutcomeDisabled {
		t.Fatalf("expected disabled without rule, got %s", d.Outcome)
	}

	rule, err = f.svc.UpsertRule(ctx, model.ChatTypeLive, RulePatch{ReactivationThreshold: intPtr(2)})
	if err != nil {
		t.Fatalf("UpsertRule error: %v", err)
	}
	if !rule.IsEnabled || rule.ReactivationThreshold != 2 || !rule.UpdatedAt.Equal(f.now) {
		t.Fatalf("unexpected rule %+v", rule)
	}
	if d := f.citizen(t); d.Outcome != OutcomeSent {
		t.Fatalf("upsert should take effect immediately, got %s", d.Outcome)
	}

	rule, err = f.svc.UpsertRule(ctx, model.ChatTypeLive, RulePatch{IsEnabled: boolPtr(false)})
	if err != nil {
		t.Fatalf("UpsertRule error: %v", err)
	}
	if rule.IsEnabled || rule.ReactivationThreshold != 2 {
		t.Fatalf("patch must keep unspecified fields, got %+v", rule)
	}
	if _, stored, _ := f.svc.GetRule(ctx, model.ChatTypeLive); !stored {
		t.Fatal("upserted rule should be reported as stored")
	}
}

func TestAnalyticsRejectsInvertedRange(t *testing.T) {
	svc := NewWithRepository(newMemoryRepository(), nil)
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	_, err := svc.Analytics(context.Background(), AnalyticsQuery{Start: start, End: start.Add(-time.Hour)})
	if codeOf(err) != ErrorCodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAnalyticsDateFilter(t *testing.T) {
	repo := newMemoryRepository()
	day := func(d int) time.Time { return time.Date(2024, 1, d, 10, 0, 0, 0, time.UTC) }
	msg := model.BotMessageConfigItem{ChatType: model.ChatTypeComplaint, MessageKey: "received", StepNumber: 1}

	for _, d := range []int{1, 2, 2, 5} {
		at := day(d)
		NewAnalytics(repo, func() time.Time { return at }).TrackTrigger(context.Background(), msg)
	}

	svc := NewWithRepository(repo, nil)
	report, err := svc.Analytics(context.Background(), AnalyticsQuery{Start: day(2), End: day(4)})
	if err != nil {
		t.Fatalf("Analytics error: %v", err)
	}
	if report.TotalTriggers != 2 || report.AdminReplyRate != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}
