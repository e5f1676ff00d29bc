package models

// FanoutPayload is the body of a negotiation:fanout task.
type FanoutPayload struct {
	RequestID string `json:"requestId"`
}

// FinalizePayload is the body of a negotiation:finalize task. Deadline runs
// force-expire whatever is still active; early runs only sweep and recount.
type FinalizePayload struct {
	RequestID string `json:"requestId"`
	Deadline  bool   `json:"deadline"`
}
