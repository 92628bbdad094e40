package cqrs

// GetAccountQuery fetches a single account and refreshes its activity.
type GetAccountQuery struct {
	AccountID string
}

// GetOrderCapacityQuery fetches the capacity snapshot without touching activity.
type GetOrderCapacityQuery struct {
	AccountID string
}

// ValidateBatchQuery checks several accounts at once; unknown ids are reported
// per entry instead of failing the batch.
type ValidateBatchQuery struct {
	AccountIDs []string
}
