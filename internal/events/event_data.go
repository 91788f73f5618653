package events

import (
	"encoding/json"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// BuyRecordedData contains data for BuyRecorded events
type BuyRecordedData struct {
	BuyID    string  `json:"buy_id"`
	Symbol   string  `json:"symbol"`
	BuyDate  string  `json:"buy_date"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// EventType returns the event type for BuyRecordedData
func (d *BuyRecordedData) EventType() EventType {
	return BuyRecorded
}

// SellRecordedData contains data for SellRecorded events
type SellRecordedData struct {
	SellID    string  `json:"sell_id"`
	BuyID     string  `json:"buy_id"`
	Symbol    string  `json:"symbol"`
	SellDate  string  `json:"sell_date"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
	Remaining float64 `json:"remaining"`
}

// EventType returns the event type for SellRecordedData
func (d *SellRecordedData) EventType() EventType {
	return SellRecorded
}

// BuyUpdatedData contains data for BuyUpdated events
type BuyUpdatedData struct {
	BuyID  string `json:"buy_id"`
	Symbol string `json:"symbol"`
}

// EventType returns the event type for BuyUpdatedData
func (d *BuyUpdatedData) EventType() EventType {
	return BuyUpdated
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	Uploaded  bool   `json:"uploaded"`
	Key       string `json:"key,omitempty"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// SystemStatusChangedData contains data for SystemStatusChanged events
type SystemStatusChangedData struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// EventType returns the event type for SystemStatusChangedData
func (d *SystemStatusChangedData) EventType() EventType {
	return SystemStatusChanged
}

// GetTypedData converts the event's data map back to its typed form.
// Returns nil when the type is unknown or the data does not fit.
func (e *Event) GetTypedData() EventData {
	if e.Data == nil {
		return nil
	}

	var data EventData
	switch e.Type {
	case BuyRecorded:
		data = &BuyRecordedData{}
	case SellRecorded:
		data = &SellRecordedData{}
	case BuyUpdated:
		data = &BuyUpdatedData{}
	case BackupCompleted:
		data = &BackupCompletedData{}
	case ErrorOccurred:
		data = &ErrorEventData{}
	case SystemStatusChanged:
		data = &SystemStatusChangedData{}
	default:
		return nil
	}

	if err := convertMapToStruct(e.Data, data); err != nil {
		return nil
	}
	return data
}

// convertMapToStruct converts a map[string]interface{} to a struct
func convertMapToStruct(m map[string]interface{}, v interface{}) error {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, v)
}

// convertEventDataToMap converts typed EventData to the map carried on the bus
func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}

	return result
}
