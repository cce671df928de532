package bot

import (
	"clean-care-backend/internal/model"
	"context"
	"log/slog"
	"sort"
	"time"
)

const analyticsDateLayout = "2006-01-02"

// Analytics keeps per-day counters of bot messages sent and of admin replies
// that followed them. Tracking failures are logged, never returned.
type Analytics struct {
	repo Repository
	now  func() time.Time
}

func NewAnalytics(repo Repository, now func() time.Time) *Analytics {
	if now == nil {
		now = time.Now
	}
	return &Analytics{repo: repo, now: now}
}

func (a *Analytics) TrackTrigger(ctx context.Context, msg model.BotMessageConfigItem) {
	a.increment(ctx, msg, 1, 0)
}

func (a *Analytics) TrackAdminReply(ctx context.Context, msg model.BotMessageConfigItem) {
	a.increment(ctx, msg, 0, 1)
}

func (a *Analytics) increment(ctx context.Context, msg model.BotMessageConfigItem, triggers, replies int) {
	row := model.BotAnalyticsItem{
		ChatType:        msg.ChatType,
		MessageKey:      msg.MessageKey,
		StepNumber:      msg.StepNumber,
		Date:            a.now().UTC().Format(analyticsDateLayout),
		TriggerCount:    triggers,
		AdminReplyCount: replies,
	}
	row.PK = model.BotAnalyticsPK(row.ChatType, row.MessageKey, row.Date)

	if err := a.repo.IncrementAnalytics(ctx, row); err != nil {
		slog.Warn("bot analytics increment failed",
			"chatType", msg.ChatType,
			"messageKey", msg.MessageKey,
			"error", err,
		)
	}
}

type AnalyticsQuery struct {
	ChatType model.ChatType
	Start    time.Time
	End      time.Time
}

type StepStats struct {
	Step     int
	Triggers int
	Replies  int
}

type AnalyticsReport struct {
	TotalTriggers     int
	TotalAdminReplies int
	// AdminReplyRate is replies per trigger, 0 when nothing was sent.
	AdminReplyRate float64
	Steps          []StepStats
}

func (a *Analytics) Report(ctx context.Context, q AnalyticsQuery) (AnalyticsReport, error) {
	filter := AnalyticsFilter{ChatType: q.ChatType}
	if !q.Start.IsZero() {
		filter.StartDate = q.Start.UTC().Format(analyticsDateLayout)
	}
	if !q.End.IsZero() {
		filter.EndDate = q.End.UTC().Format(analyticsDateLayout)
	}

	rows, err := a.repo.ListAnalytics(ctx, filter)
	if err != nil {
		return AnalyticsReport{}, err
	}

	var report AnalyticsReport
	byStep := make(map[int]*StepStats)
	for _, row := range rows {
		report.TotalTriggers += row.TriggerCount
		report.TotalAdminReplies += row.AdminReplyCount

		stats, ok := byStep[row.StepNumber]
		if !ok {
			stats = &StepStats{Step: row.StepNumber}
			byStep[row.StepNumber] = stats
		}
		stats.Triggers += row.TriggerCount
		stats.Replies += row.AdminReplyCount
	}

	if report.TotalTriggers > 0 {
		report.AdminReplyRate = float64(report.TotalAdminReplies) / float64(report.TotalTriggers)
	}

	report.Steps = make([]StepStats, 0, len(byStep))
	for _, stats := range byStep {
		report.Steps = append(report.Steps, *stats)
	}
	sort.Slice(report.Steps, func(i, j int) bool {
		return report.Steps[i].Step < report.Steps[j].Step
	})
	return report, nil
}
