package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clean-care-backend/internal/model"
)

// peerSync stands in for Redis: every announcement reaches the listed
// services as if they ran in other processes.
type peerSync struct {
	mu        sync.Mutex
	peers     []*Service
	announced []model.ChatType
	err       error
}

func (p *peerSync) Announce(ctx context.Context, chatType model.ChatType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.announced = append(p.announced, chatType)
	if p.err != nil {
		return p.err
	}
	for _, peer := range p.peers {
		peer.InvalidateConfig(chatType)
	}
	return nil
}

// sendNow handles a citizen message without moving the clock, so the
// citizen side's cache never expires on its own.
func (f *fixture) sendNow(t *testing.T) Decision {
	t.Helper()
	d, err := f.orch.HandleCitizenMessage(context.Background(), model.ChatTypeLive, conversationID)
	if err != nil {
		t.Fatalf("HandleCitizenMessage error: %v", err)
	}
	return d
}

func TestAnnouncedRuleEditReachesOtherService(t *testing.T) {
	f := newFixture(t, defaultRule())
	ctx := context.Background()
	peers := &peerSync{peers: []*Service{f.svc}}
	admin := NewWithRepository(f.repo, func() time.Time { return f.now }, WithConfigSync(peers))

	if d := f.sendNow(t); d.Outcome != OutcomeSent {
		t.Fatalf("expected first step, got %s", d.Outcome)
	}

	if _, err := admin.UpsertRule(ctx, model.ChatTypeLive, RulePatch{IsEnabled: boolPtr(false)}); err != nil {
		t.Fatalf("UpsertRule error: %v", err)
	}
	if d := f.sendNow(t); d.Outcome != OutcomeDisabled {
		t.Fatalf("disabled bot still answered: %+v", d)
	}
	if len(f.appender.texts) != 1 {
		t.Fatalf("expected one bot message, got %v", f.appender.texts)
	}

	if _, err := admin.UpsertRule(ctx, model.ChatTypeLive, RulePatch{IsEnabled: boolPtr(true)}); err != nil {
		t.Fatalf("UpsertRule error: %v", err)
	}
	if _, err := admin.UpdateMessage(ctx, model.ChatTypeLive, "team", UpdateMessageParams{Content: strPtr("Edited elsewhere")}); err != nil {
		t.Fatalf("UpdateMessage error: %v", err)
	}
	if d := f.sendNow(t); d.Outcome != OutcomeSent || f.appender.texts[1] != "Edited elsewhere" {
		t.Fatalf("expected edited step two, got %+v %v", d, f.appender.texts)
	}
	if len(peers.announced) != 3 {
		t.Fatalf("expected three announcements, got %v", peers.announced)
	}
}

func TestUncachedServiceSeesOtherServiceEdits(t *testing.T) {
	repo := newMemoryRepository()
	repo.rules[model.ChatTypeLive] = DefaultTriggerRule(model.ChatTypeLive)
	repo.addMessage(model.ChatTypeLive, "welcome", 1, 0, "Welcome")
	repo.addMessage(model.ChatTypeLive, "team", 2, 0, "Our team will respond soon")

	now := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	appender := &recordingAppender{now: clock}
	citizen := NewWithRepository(repo, clock, WithConfigTTL(0)).Orchestrator(appender)
	admin := NewWithRepository(repo, clock)
	ctx := context.Background()

	if d, _ := citizen.HandleCitizenMessage(ctx, model.ChatTypeLive, conversationID); d.Outcome != OutcomeSent {
		t.Fatalf("expected first step, got %s", d.Outcome)
	}
	if _, err := admin.UpsertRule(ctx, model.ChatTypeLive, RulePatch{IsEnabled: boolPtr(false)}); err != nil {
		t.Fatalf("UpsertRule error: %v", err)
	}
	if d, _ := citizen.HandleCitizenMessage(ctx, model.ChatTypeLive, conversationID); d.Outcome != OutcomeDisabled {
		t.Fatalf("disabled bot still answered: %+v", d)
	}
}

func TestFailedAnnouncementStillAppliesLocally(t *testing.T) {
	f := newFixture(t, defaultRule())
	f.svc.sync = &peerSync{err: errors.New("redis down")}
	ctx := context.Background()

	f.sendNow(t)
	if _, err := f.svc.UpsertRule(ctx, model.ChatTypeLive, RulePatch{IsEnabled: boolPtr(false)}); err != nil {
		t.Fatalf("announcement failure must not fail the edit: %v", err)
	}
	if d := f.sendNow(t); d.Outcome != OutcomeDisabled {
		t.Fatalf("expected disabled, got %s", d.Outcome)
	}
}

func TestConfigTTLOption(t *testing.T) {
	repo := newMemoryRepository()
	if ttl := NewWithRepository(repo, nil).config.ttl; ttl != defaultConfigTTL {
		t.Fatalf("default ttl = %s", ttl)
	}
	if ttl := NewWithRepository(repo, nil, WithConfigTTL(time.Second)).config.ttl; ttl != time.Second {
		t.Fatalf("ttl option ignored: %s", ttl)
	}
}
