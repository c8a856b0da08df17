package mq

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType — тип задания в очереди.
type MessageType string

const (
	// MessageTypeExecuteQuery — выполнить query с подставленными
	// параметрами. Потребляет внешняя подсистема выполнения.
	MessageTypeExecuteQuery MessageType = "query.execute"

	// MessageTypeRefreshSchema — принудительно обновить схему
	// источника данных. Потребляет freshboard-worker.
	MessageTypeRefreshSchema MessageType = "schema.refresh"
)

// Message — конверт сообщения в очереди.
//
// Все сообщения Freshboard, независимо от типа, несут payload
// внутри единого конверта с id и временем постановки.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// ExecuteQueryPayload — задание на выполнение query.
type ExecuteQueryPayload struct {
	// QueryID — id исходной query.
	QueryID int64 `json:"query_id"`

	// QueryText — текст запроса с уже подставленными параметрами.
	QueryText string `json:"query_text"`

	// DataSourceID — источник, на котором выполнять.
	DataSourceID int64 `json:"data_source_id"`

	// UserID — от чьего имени выполняется.
	UserID int64 `json:"user_id"`

	// Metadata — сопутствующие данные задания. Для запланированных
	// обновлений как минимум "Query ID" и "Username": "Scheduled".
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RefreshSchemaPayload — задание на обновление схемы источника.
type RefreshSchemaPayload struct {
	DataSourceID int64 `json:"data_source_id"`
}

// ParsePayload приводит payload конверта к конкретному типу задания.
//
// После json.Unmarshal конверта payload лежит в Message как
// map[string]any, поэтому приведение идёт через повторный marshal.
func ParsePayload[T any](msg *Message) (T, error) {
	var payload T

	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return payload, fmt.Errorf("marshal %s payload: %w", msg.Type, err)
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("unmarshal %s payload: %w", msg.Type, err)
	}

	return payload, nil
}
