package websocket

import "time"

// Типы сообщений, которые понимает фронтенд.
const (
	TypePageRefresh = "page.refresh"
	TypeImportDone  = "import.completed"
)

// Команды вкладки: {"action":"watch","entity":"branch"}.
const (
	ActionWatch   = "watch"
	ActionUnwatch = "unwatch"
)

type Command struct {
	Action string `json:"action"`
	Entity string `json:"entity"`
}

// Envelope — "конверт", в котором отправляются сообщения.
type Envelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// RefreshPayload просит открытые страницы сущности перечитать список.
type RefreshPayload struct {
	Entity   string `json:"entity"`
	Reason   string `json:"reason"`
	RecordID string `json:"recordId,omitempty"`
	BatchID  string `json:"batchId,omitempty"`
	ActorID  uint64 `json:"actorId"`
}
