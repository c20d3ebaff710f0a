package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aula-go-api/internal/models"
)

func completionFixture(t *testing.T) (CompletionService, EventLogService, models.Instance) {
	t.Helper()
	events := NewEventLogService(&memoryLogRepo{}, testLogger())
	return NewCompletionService(events, testLogger()), events, testInstance()
}

func TestOverallStateNoActiveRulesIsComplete(t *testing.T) {
	svc, _, instance := completionFixture(t)

	state, err := svc.OverallState(context.Background(), instance, 10, models.CompletionRuleSet{})
	require.NoError(t, err)
	require.Equal(t, models.CompletionComplete, state)

	// Disabled rules do not participate either.
	state, err = svc.OverallState(context.Background(), instance, 10, models.CompletionRuleSet{
		models.RuleAttendance: {Enabled: false, Threshold: 1000},
	})
	require.NoError(t, err)
	require.Equal(t, models.CompletionComplete, state)
}

func TestOverallStateAggregatesAcrossSummaries(t *testing.T) {
	svc, events, instance := completionFixture(t)

	require.NoError(t, events.LogEventSummary(context.Background(), instance, 10, 0, 40, map[string]int{"chats": 1}))
	require.NoError(t, events.LogEventSummary(context.Background(), instance, 10, 0, 30, map[string]int{"chats": 2}))

	state, err := svc.OverallState(context.Background(), instance, 10, models.CompletionRuleSet{
		models.RuleAttendance:      {Enabled: true, Threshold: 60},
		models.RuleEngagementChats: {Enabled: true, Threshold: 3},
	})
	require.NoError(t, err)
	require.Equal(t, models.CompletionComplete, state)
}

func TestOverallStateAllActiveRulesMustPass(t *testing.T) {
	svc, events, instance := completionFixture(t)

	require.NoError(t, events.LogEventSummary(context.Background(), instance, 10, 0, 90, map[string]int{"talks": 1}))

	state, err := svc.OverallState(context.Background(), instance, 10, models.CompletionRuleSet{
		models.RuleAttendance:      {Enabled: true, Threshold: 60},
		models.RuleEngagementTalks: {Enabled: true, Threshold: 5},
	})
	require.NoError(t, err)
	require.Equal(t, models.CompletionIncomplete, state)
}

func TestOverallStateWithNoSummariesIsIncomplete(t *testing.T) {
	svc, _, instance := completionFixture(t)

	state, err := svc.OverallState(context.Background(), instance, 10, models.CompletionRuleSet{
		models.RuleAttendance: {Enabled: true, Threshold: 1},
	})
	require.NoError(t, err)
	require.Equal(t, models.CompletionIncomplete, state)
}

func TestOverallStateIgnoresUnrecognisedRules(t *testing.T) {
	svc, _, instance := completionFixture(t)

	state, err := svc.OverallState(context.Background(), instance, 10, models.CompletionRuleSet{
		models.RuleName("engagementBackflips"): {Enabled: true, Threshold: 99},
	})
	require.NoError(t, err)
	require.Equal(t, models.CompletionComplete, state)
}

func TestAggregateOnlyCountsRequestedUser(t *testing.T) {
	svc, events, instance := completionFixture(t)

	require.NoError(t, events.LogEventSummary(context.Background(), instance, 10, 0, 25, map[string]int{"emojis": 3}))
	require.NoError(t, events.LogEventSummary(context.Background(), instance, 11, 0, 90, map[string]int{"emojis": 9}))

	summary, err := svc.Aggregate(context.Background(), instance, 10)
	require.NoError(t, err)
	require.Equal(t, 25, summary.TotalMinutes)
	require.Equal(t, 3, summary.Metric("emojis"))
}

func TestRuleDescriptionsOrderAndValues(t *testing.T) {
	svc, events, instance := completionFixture(t)

	require.NoError(t, events.LogEventSummary(context.Background(), instance, 10, 0, 60, map[string]int{"chats": 2}))
	require.NoError(t, events.LogEventSummary(context.Background(), instance, 10, 0, 60, map[string]int{"chats": 2, "talks": 1}))

	descriptions, err := svc.RuleDescriptions(context.Background(), instance, 10)
	require.NoError(t, err)
	require.Len(t, descriptions, 6)

	require.Equal(t, string(models.RuleEngagementChats), descriptions[0].Rule)
	require.Equal(t, 4, descriptions[0].Value)
	require.Equal(t, "You have written 4 chat messages", descriptions[0].Description)

	require.Equal(t, string(models.RuleEngagementTalks), descriptions[1].Rule)
	require.Equal(t, "You have talked 1 times", descriptions[1].Description)

	require.Equal(t, string(models.RuleAttendance), descriptions[2].Rule)
	require.Equal(t, 120, descriptions[2].Value)

	require.Equal(t, string(models.RuleEngagementRaiseHand), descriptions[3].Rule)
	require.Equal(t, string(models.RuleEngagementPollVotes), descriptions[4].Rule)
	require.Equal(t, string(models.RuleEngagementEmojis), descriptions[5].Rule)
	require.Equal(t, "You have sent 0 emoji reactions", descriptions[5].Description)
}
