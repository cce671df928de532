package endpoints

import (
	"net/http"
	"testing"

	"clean-care-backend/internal/api"
	"clean-care-backend/internal/dto"
	internaljwt "clean-care-backend/internal/jwt"
	"clean-care-backend/internal/model"
)

func TestBotMessageLifecycle(t *testing.T) {
	s := setupTestServer(t, 30)
	admin := token(t, internaljwt.RoleAdmin, "admin-1")

	rec := s.do(t, http.MethodPost, "/admin/bot/messages", admin, dto.CreateBotMessageRequest{
		ChatType:   "LIVE_CHAT",
		MessageKey: "live_welcome",
		Content:    "Welcome",
		StepNumber: 1,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[dto.BotMessageResponse](t, rec)
	if !created.IsActive || created.StepNumber != 1 {
		t.Fatalf("unexpected created message %+v", created)
	}

	dup := s.do(t, http.MethodPost, "/admin/bot/messages", admin, dto.CreateBotMessageRequest{
		ChatType:   "LIVE_CHAT",
		MessageKey: "live_welcome",
		Content:    "Again",
		StepNumber: 2,
	})
	if dup.Code != http.StatusConflict {
		t.Fatalf("duplicate key: expected 409, got %d", dup.Code)
	}

	content := "Welcome back"
	rec = s.do(t, http.MethodPut, "/admin/bot/messages/LIVE_CHAT/live_welcome", admin, dto.UpdateBotMessageRequest{Content: &content})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status %d: %s", rec.Code, rec.Body.String())
	}
	if updated := decode[dto.BotMessageResponse](t, rec); updated.Content != content {
		t.Fatalf("content = %q", updated.Content)
	}

	list := decode[dto.ListBotMessagesResponse](t, s.do(t, http.MethodGet, "/admin/bot/messages?chatType=LIVE_CHAT", admin, nil))
	if len(list.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(list.Messages))
	}

	if rec := s.do(t, http.MethodDelete, "/admin/bot/messages/LIVE_CHAT/live_welcome", admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete status %d", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, "/admin/bot/messages/LIVE_CHAT/live_welcome", admin, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestBotMessageValidation(t *testing.T) {
	s := setupTestServer(t, 30)
	admin := token(t, internaljwt.RoleAdmin, "admin-1")

	rec := s.do(t, http.MethodPost, "/admin/bot/messages", admin, dto.CreateBotMessageRequest{
		ChatType:   "LIVE_CHAT",
		MessageKey: "step_zero",
		Content:    "Hi",
		StepNumber: 0,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("step 0: expected 400, got %d", rec.Code)
	}

	if rec := s.do(t, http.MethodGet, "/admin/bot/messages", admin, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing chatType: expected 400, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/admin/bot/rules/GROUP_CHAT", admin, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown chat type: expected 400, got %d", rec.Code)
	}
}

func TestBotRuleDefaultsAndUpdate(t *testing.T) {
	s := setupTestServer(t, 30)
	admin := token(t, internaljwt.RoleAdmin, "admin-1")

	rule := decode[dto.TriggerRuleResponse](t, s.do(t, http.MethodGet, "/admin/bot/rules/COMPLAINT_CHAT", admin, nil))
	if rule.Stored || !rule.IsEnabled || rule.ReactivationThreshold != model.DefaultReactivationThreshold || rule.ResetStepsOnReactivate {
		t.Fatalf("unexpected default rule %+v", rule)
	}

	threshold := 3
	enabled := false
	rec := s.do(t, http.MethodPut, "/admin/bot/rules/COMPLAINT_CHAT", admin, dto.UpdateTriggerRuleRequest{
		IsEnabled:             &enabled,
		ReactivationThreshold: &threshold,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update rule status %d: %s", rec.Code, rec.Body.String())
	}
	rule = decode[dto.TriggerRuleResponse](t, rec)
	if !rule.Stored || rule.IsEnabled || rule.ReactivationThreshold != 3 || rule.ResetStepsOnReactivate {
		t.Fatalf("unexpected updated rule %+v", rule)
	}
	rule = decode[dto.TriggerRuleResponse](t, s.do(t, http.MethodGet, "/admin/bot/rules/COMPLAINT_CHAT", admin, nil))
	if !rule.Stored || rule.IsEnabled {
		t.Fatalf("saved rule not reported %+v", rule)
	}

	zero := 0
	rec = s.do(t, http.MethodPut, "/admin/bot/rules/COMPLAINT_CHAT", admin, dto.UpdateTriggerRuleRequest{ReactivationThreshold: &zero})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("threshold 0: expected 400, got %d", rec.Code)
	}
}

func TestBotStateForUnknownConversation(t *testing.T) {
	s := setupTestServer(t, 30)
	admin := token(t, internaljwt.RoleAdmin, "admin-1")

	state := decode[dto.ConversationStateResponse](t, s.do(t, http.MethodGet, "/admin/bot/state/LIVE_CHAT/nobody", admin, nil))
	if state.Exists || state.CurrentStep != 0 || !state.IsActive {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestBotAnalyticsRejectsBadDate(t *testing.T) {
	s := setupTestServer(t, 30)
	admin := token(t, internaljwt.RoleAdmin, "admin-1")

	rec := s.do(t, http.MethodGet, "/admin/bot/analytics?start=01-02-2024", admin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decode[api.ApiError](t, rec); body.Error != "Invalid start date, expected YYYY-MM-DD" {
		t.Fatalf("unexpected error %q", body.Error)
	}

	seedLiveCatalog(t, s.bot)
	citizen := token(t, internaljwt.RoleCitizen, "citizen-9")
	s.do(t, http.MethodPost, "/citizen/live-chat/messages", citizen, dto.SendMessageRequest{Message: "hello"})

	report := decode[dto.BotAnalyticsResponse](t, s.do(t, http.MethodGet, "/admin/bot/analytics?chatType=LIVE_CHAT", admin, nil))
	if report.TotalTriggers != 1 || len(report.Steps) != 1 || report.Steps[0].StepNumber != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestBotRoutesRequireAdmin(t *testing.T) {
	s := setupTestServer(t, 30)
	citizen := token(t, internaljwt.RoleCitizen, "citizen-1")

	if rec := s.do(t, http.MethodGet, "/admin/bot/rules/LIVE_CHAT", citizen, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
