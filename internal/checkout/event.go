package checkout

import "encoding/json"

// EventTypeSessionCompleted - тип события успешного завершения оплаты.
const EventTypeSessionCompleted = "checkout.session.completed"

// Event описывает событие вебхука провайдера.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData содержит объект события.
type EventData struct {
	Object EventSession `json:"object"`
}

// EventSession - сессия из payload события. Metadata возвращается
// провайдером без изменений (то, что было передано при создании).
type EventSession struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// ParseEvent разбирает сырое тело вебхука в Event.
func ParseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
