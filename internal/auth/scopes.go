package auth

// Known OAuth scopes used by the training service.
const (
	ScopeTrainingsWrite = "trainings:write"
	ScopeTrainingsRead  = "trainings:read"
)
