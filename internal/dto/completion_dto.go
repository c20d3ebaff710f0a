package dto

// CompletionResponse is the completion verdict for one user on one instance,
// together with the aggregates it was computed from.
type CompletionResponse struct {
	State        string         `json:"state"`
	TotalMinutes int            `json:"total_minutes"`
	Engagement   map[string]int `json:"engagement"`
}

// RuleDescriptionResponse is one human-readable completion rule description,
// parameterised by the user's current aggregate value.
type RuleDescriptionResponse struct {
	Rule        string `json:"rule"`
	Value       int    `json:"value"`
	Description string `json:"description"`
}
