package dto

// WorkerTriggerRequestDTO is the body of a worker trigger request. All fields
// are optional; absent values fall back to configured defaults.
type WorkerTriggerRequestDTO struct {
	Platform string `json:"platform,omitempty"`
	Limit    int    `json:"limit,omitempty" validate:"omitempty,min=1,max=500"`
}
