package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/noah-isme/aula-go-api/internal/dto"
	"github.com/noah-isme/aula-go-api/internal/models"
)

// EngagementSummary aggregates a user's Summary entries for one instance.
// It is recomputed from the event log on every request, never cached here.
type EngagementSummary struct {
	TotalMinutes int
	Metrics      map[string]int
}

// Metric returns the summed value for one engagement metric, zero when the
// metric never appeared.
func (e EngagementSummary) Metric(key string) int {
	return e.Metrics[key]
}

// CompletionService evaluates instructor-configured completion rules against
// a user's aggregated engagement.
type CompletionService interface {
	Aggregate(ctx context.Context, instance models.Instance, userID uint) (EngagementSummary, error)
	OverallState(ctx context.Context, instance models.Instance, userID uint, rules models.CompletionRuleSet) (models.CompletionState, error)
	RuleDescriptions(ctx context.Context, instance models.Instance, userID uint) ([]dto.RuleDescriptionResponse, error)
}

type completionService struct {
	events EventLogService
	logger zerolog.Logger
}

// NewCompletionService constructs the completion evaluator.
func NewCompletionService(events EventLogService, logger zerolog.Logger) CompletionService {
	return &completionService{
		events: events,
		logger: logger.With().Str("component", "completion_service").Logger(),
	}
}

func (s *completionService) Aggregate(ctx context.Context, instance models.Instance, userID uint) (EngagementSummary, error) {
	entries, err := s.events.UserSummaryLogs(ctx, instance.ID, userID)
	if err != nil {
		return EngagementSummary{}, err
	}

	summary := EngagementSummary{Metrics: map[string]int{}}
	for _, entry := range entries {
		data, ok := entry.Metadata[models.MetaData].(map[string]interface{})
		if !ok {
			continue
		}

		summary.TotalMinutes += metaInt(data[models.MetaDuration])

		engagement, ok := data[models.MetaEngagement].(map[string]interface{})
		if !ok {
			continue
		}
		for metric, value := range engagement {
			summary.Metrics[metric] += metaInt(value)
		}
	}

	return summary, nil
}

// OverallState combines all active rules with logical AND. With no active
// rules the verdict is complete: the activity imposes no custom requirements.
func (s *completionService) OverallState(ctx context.Context, instance models.Instance, userID uint, rules models.CompletionRuleSet) (models.CompletionState, error) {
	active := rules.Active()
	for name := range rules {
		if !name.Recognised() {
			s.logger.Debug().Str("rule", string(name)).Msg("ignoring unrecognised completion rule")
		}
	}

	if len(active) == 0 {
		return models.CompletionComplete, nil
	}

	summary, err := s.Aggregate(ctx, instance, userID)
	if err != nil {
		return models.CompletionIncomplete, err
	}

	for name, rule := range active {
		if ruleValue(summary, name) < rule.Threshold {
			return models.CompletionIncomplete, nil
		}
	}

	return models.CompletionComplete, nil
}

// descriptionOrder fixes the presentation order of rule descriptions.
var descriptionOrder = []models.RuleName{
	models.RuleEngagementChats,
	models.RuleEngagementTalks,
	models.RuleAttendance,
	models.RuleEngagementRaiseHand,
	models.RuleEngagementPollVotes,
	models.RuleEngagementEmojis,
}

// RuleDescriptions returns one description per recognised rule, active or
// not, parameterised by the user's current aggregate value rather than the
// configured threshold.
func (s *completionService) RuleDescriptions(ctx context.Context, instance models.Instance, userID uint) ([]dto.RuleDescriptionResponse, error) {
	summary, err := s.Aggregate(ctx, instance, userID)
	if err != nil {
		return nil, err
	}

	descriptions := make([]dto.RuleDescriptionResponse, 0, len(descriptionOrder))
	for _, name := range descriptionOrder {
		value := ruleValue(summary, name)
		descriptions = append(descriptions, dto.RuleDescriptionResponse{
			Rule:        string(name),
			Value:       value,
			Description: describeRule(name, value),
		})
	}

	return descriptions, nil
}

func ruleValue(summary EngagementSummary, name models.RuleName) int {
	if name == models.RuleAttendance {
		return summary.TotalMinutes
	}
	return summary.Metric(name.MetricKey())
}

func describeRule(name models.RuleName, value int) string {
	switch name {
	case models.RuleEngagementChats:
		return fmt.Sprintf("You have written %d chat messages", value)
	case models.RuleEngagementTalks:
		return fmt.Sprintf("You have talked %d times", value)
	case models.RuleAttendance:
		return fmt.Sprintf("You have attended %d minutes", value)
	case models.RuleEngagementRaiseHand:
		return fmt.Sprintf("You have raised your hand %d times", value)
	case models.RuleEngagementPollVotes:
		return fmt.Sprintf("You have voted in %d polls", value)
	case models.RuleEngagementEmojis:
		return fmt.Sprintf("You have sent %d emoji reactions", value)
	}
	return ""
}

// metaInt coerces the numeric representations a JSON metadata round trip can
// produce. Anything unparseable contributes zero.
func metaInt(value interface{}) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return int(parsed)
		}
	case string:
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return 0
}
