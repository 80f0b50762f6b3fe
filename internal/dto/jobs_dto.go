package dto

// DeadLetterQuery is bound from the query string of the dead letter routes.
// A zero Limit lists 20 entries and requeues them all.
type DeadLetterQuery struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=500"`
}

type RequeueResponse struct {
	Queue    string `json:"queue"`
	Requeued int    `json:"requeued"`
}
