package journal

import (
	"encoding/json"
	"time"
)

// Record is one persisted envelope.
type Record struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	RequestID   string    `gorm:"size:64;index" json:"requestId"`
	Agent       string    `gorm:"size:128;index:idx_agent_created" json:"agent"`
	RequestType string    `gorm:"size:64" json:"requestType,omitempty"`
	Message     string    `gorm:"type:text" json:"message"`
	Strategy    string    `gorm:"size:32" json:"strategy,omitempty"`
	ToolID      string    `gorm:"size:128" json:"toolId,omitempty"`
	Pattern     string    `gorm:"size:64" json:"pattern,omitempty"`
	Type        string    `gorm:"size:64;index" json:"type"`
	ErrorCode   string    `gorm:"size:64;index" json:"errorCode,omitempty"`
	Error       string    `gorm:"type:text" json:"error,omitempty"`
	DurationMS  int64     `json:"durationMs"`
	Envelope    string    `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `gorm:"index:idx_agent_created" json:"createdAt"`
}

// TableName 指定表名
func (Record) TableName() string {
	return "envelope_records"
}

// DecodeEnvelope returns the stored envelope JSON as a generic map.
func (r Record) DecodeEnvelope() (map[string]any, error) {
	if r.Envelope == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(r.Envelope), &out); err != nil {
		return nil, err
	}
	return out, nil
}
