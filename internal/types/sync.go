package types

// SyncEventType labels the sync lifecycle notifications that travel over
// the event bus and out to the owning user's websockets.
type SyncEventType string

const (
	SyncStarted   SyncEventType = "sync.started"
	SyncCompleted SyncEventType = "sync.completed"
	SyncFailed    SyncEventType = "sync.failed"
)

// SyncEvent is the payload published for each lifecycle transition of a
// background sync task.
type SyncEvent struct {
	SyncID       string `json:"sync_id"`
	UserID       string `json:"user_id"`
	SyncType     string `json:"sync_type"`
	Status       string `json:"status"`
	ItemsSynced  int    `json:"items_synced"`
	PagesFetched int    `json:"pages_fetched,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ToMap flattens the event for transport inside a generic bus envelope.
func (e SyncEvent) ToMap() map[string]any {
	data := map[string]any{
		"sync_id":      e.SyncID,
		"user_id":      e.UserID,
		"sync_type":    e.SyncType,
		"status":       e.Status,
		"items_synced": e.ItemsSynced,
	}
	if e.PagesFetched > 0 {
		data["pages_fetched"] = e.PagesFetched
	}
	if e.Error != "" {
		data["error"] = e.Error
	}
	return data
}

// SyncTriggerResponse is the body returned by the sync trigger endpoint.
type SyncTriggerResponse struct {
	SyncID string `json:"sync_id,omitempty"`
	Status string `json:"status"`
}

// SyncHistoryEntry is one row in the sync status listing.
type SyncHistoryEntry struct {
	SyncID      string  `json:"sync_id"`
	SyncType    string  `json:"sync_type"`
	Status      string  `json:"status"`
	ItemsSynced int     `json:"items_synced"`
	Error       *string `json:"error"`
	StartedAt   string  `json:"started_at"`
	CompletedAt *string `json:"completed_at"`
}

// SyncStatusResponse is the body returned by the sync status endpoint.
type SyncStatusResponse struct {
	Syncs []SyncHistoryEntry `json:"syncs"`
}
