package transfer

// PostCreation carries user input for a new post. ScheduledTime is the
// wall-clock string the user typed, interpreted in Timezone.
type PostCreation struct {
	Content       string `json:"content"`
	Status        string `json:"status"`
	ScheduledTime string `json:"scheduled_time"`
	Timezone      string `json:"timezone"`
}

// PostUpdate carries a mutation of an existing, not yet published post.
// Nil pointer fields are left unchanged.
type PostUpdate struct {
	Content       *string `json:"content"`
	Status        *string `json:"status"`
	ScheduledTime *string `json:"scheduled_time"`
	Timezone      *string `json:"timezone"`
}
