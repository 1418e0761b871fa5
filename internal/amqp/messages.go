package amqp

import (
	"encoding/json"
	"time"
)

// TariffSyncMessage announces the outcome of one completed sync run so
// downstream consumers can react without polling the database.
type TariffSyncMessage struct {
	Date      string    `json:"date"`
	Fetched   int       `json:"fetched"`
	Saved     int       `json:"saved"`
	Published []string  `json:"published_targets,omitempty"`
	Failed    []string  `json:"failed_targets,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTariffSyncMessage(date string, fetched, saved int, published, failed []string) *TariffSyncMessage {
	return &TariffSyncMessage{
		Date:      date,
		Fetched:   fetched,
		Saved:     saved,
		Published: published,
		Failed:    failed,
		Timestamp: time.Now(),
	}
}

func (m *TariffSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TariffSyncMessageFromJSON(data []byte) (*TariffSyncMessage, error) {
	var msg TariffSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
