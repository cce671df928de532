// Package seed holds the default bot catalog and trigger rules shipped with
// a fresh install.
package seed

import (
	"clean-care-backend/internal/model"
	botservice "clean-care-backend/internal/service/bot"
	"context"
	"errors"
	"fmt"
	"log/slog"
)

type Message struct {
	ChatType         model.ChatType
	MessageKey       string
	Content          string
	ContentLocalized string
	StepNumber       int
	DisplayOrder     int
}

type Rule struct {
	ChatType               model.ChatType
	IsEnabled              bool
	ReactivationThreshold  int
	ResetStepsOnReactivate bool
}

type Catalog struct {
	Messages []Message
	Rules    []Rule
}

// Defaults returns three steps per chat type, in English with Bangla
// translations, and an enabled rule for each chat type.
func Defaults() Catalog {
	return Catalog{
		Messages: []Message{
			{
				ChatType:         model.ChatTypeLive,
				MessageKey:       "live_chat_welcome",
				Content:          "Welcome to Clean Care Live Chat! How can we help you today?",
				ContentLocalized: "ক্লিন কেয়ার লাইভ চ্যাটে স্বাগতম! আজ আমরা আপনাকে কিভাবে সাহায্য করতে পারি?",
				StepNumber:       1,
				DisplayOrder:     1,
			},
			{
				ChatType:         model.ChatTypeLive,
				MessageKey:       "live_chat_team_response",
				Content:          "Our team will respond shortly. You can send text, images, or voice messages.",
				ContentLocalized: "আমাদের টিম শীঘ্রই উত্তর দেবে। আপনি টেক্সট, ছবি বা ভয়েস মেসেজ পাঠাতে পারেন।",
				StepNumber:       2,
				DisplayOrder:     2,
			},
			{
				ChatType:         model.ChatTypeLive,
				MessageKey:       "live_chat_office_hours",
				Content:          "Office hours: Saturday to Thursday, 9 AM - 5 PM",
				ContentLocalized: "অফিস সময়: শনিবার থেকে বৃহস্পতিবার, সকাল ৯টা - বিকাল ৫টা",
				StepNumber:       3,
				DisplayOrder:     3,
			},
			{
				ChatType:         model.ChatTypeComplaint,
				MessageKey:       "complaint_chat_received",
				Content:          "Your complaint has been received and is being reviewed.",
				ContentLocalized: "আপনার অভিযোগ গ্রহণ করা হয়েছে এবং পর্যালোচনা করা হচ্ছে।",
				StepNumber:       1,
				DisplayOrder:     1,
			},
			{
				ChatType:         model.ChatTypeComplaint,
				MessageKey:       "complaint_chat_working",
				Content:          "Our team is working on your complaint. We will update you soon.",
				ContentLocalized: "আমাদের টিম আপনার অভিযোগে কাজ করছে। আমরা শীঘ্রই আপডেট দেব।",
				StepNumber:       2,
				DisplayOrder:     2,
			},
			{
				ChatType:         model.ChatTypeComplaint,
				MessageKey:       "complaint_chat_patience",
				Content:          "Please wait while we process your complaint. Thank you for your patience.",
				ContentLocalized: "আপনার অভিযোগ প্রক্রিয়া করার সময় অনুগ্রহ করে অপেক্ষা করুন। আপনার ধৈর্যের জন্য ধন্যবাদ।",
				StepNumber:       3,
				DisplayOrder:     3,
			},
		},
		Rules: []Rule{
			{ChatType: model.ChatTypeLive, IsEnabled: true, ReactivationThreshold: model.DefaultReactivationThreshold},
			{ChatType: model.ChatTypeComplaint, IsEnabled: true, ReactivationThreshold: model.DefaultReactivationThreshold},
		},
	}
}

type Result struct {
	Created int
	Updated int
	Rules   int
}

// Apply writes the catalog through the bot service. Existing keys are
// overwritten and reactivated, so running it twice is harmless.
func Apply(ctx context.Context, svc *botservice.Service, catalog Catalog) (Result, error) {
	var res Result
	active := true

	for _, msg := range catalog.Messages {
		content := msg.Content
		localized := msg.ContentLocalized
		step := msg.StepNumber
		order := msg.DisplayOrder

		_, err := svc.UpdateMessage(ctx, msg.ChatType, msg.MessageKey, botservice.UpdateMessageParams{
			Content:          &content,
			ContentLocalized: &localized,
			StepNumber:       &step,
			DisplayOrder:     &order,
			IsActive:         &active,
		})
		if err == nil {
			res.Updated++
			slog.Info("bot message updated", "chatType", msg.ChatType, "messageKey", msg.MessageKey, "step", step)
			continue
		}
		if !isNotFound(err) {
			return res, fmt.Errorf("update %s: %w", msg.MessageKey, err)
		}

		if _, err := svc.CreateMessage(ctx, botservice.CreateMessageParams{
			ChatType:         msg.ChatType,
			MessageKey:       msg.MessageKey,
			Content:          content,
			ContentLocalized: localized,
			StepNumber:       step,
			DisplayOrder:     order,
			IsActive:         &active,
		}); err != nil {
			return res, fmt.Errorf("create %s: %w", msg.MessageKey, err)
		}
		res.Created++
		slog.Info("bot message created", "chatType", msg.ChatType, "messageKey", msg.MessageKey, "step", step)
	}

	for _, rule := range catalog.Rules {
		enabled := rule.IsEnabled
		threshold := rule.ReactivationThreshold
		reset := rule.ResetStepsOnReactivate
		if _, err := svc.UpsertRule(ctx, rule.ChatType, botservice.RulePatch{
			IsEnabled:              &enabled,
			ReactivationThreshold:  &threshold,
			ResetStepsOnReactivate: &reset,
		}); err != nil {
			return res, fmt.Errorf("rule %s: %w", rule.ChatType, err)
		}
		res.Rules++
		slog.Info("trigger rule saved",
			"chatType", rule.ChatType,
			"enabled", enabled,
			"reactivationThreshold", threshold,
			"resetStepsOnReactivate", reset,
		)
	}

	return res, nil
}

func isNotFound(err error) bool {
	var svcErr *botservice.Error
	return errors.As(err, &svcErr) && svcErr.Code == botservice.ErrorCodeNotFound
}
