package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ReportJobMessage announces a queued report job. The worker loads the job
// header from the database by ID.
type ReportJobMessage struct {
	JobID     string    `json:"job_id"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReportJobMessage creates a message for a queued job.
func NewReportJobMessage(jobID, kind string) *ReportJobMessage {
	return &ReportJobMessage{
		JobID:     jobID,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportJobMessageFromJSON decodes a message and rejects one without a job ID.
func ReportJobMessageFromJSON(data []byte) (*ReportJobMessage, error) {
	var msg ReportJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.JobID == "" {
		return nil, errors.New("report job message without job_id")
	}
	return &msg, nil
}
