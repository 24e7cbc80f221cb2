package amqp

import (
	"encoding/json"
	"time"
)

// RoutingKeyCargaConcluida is the routing key of load notifications.
const RoutingKeyCargaConcluida = "carga.concluida"

// CargaConcluidaMessage announces that an ETL run finished reloading
// tables. Consumers refresh anything derived from those tables.
type CargaConcluidaMessage struct {
	RunID     string    `json:"run_id"`
	Backend   string    `json:"backend"`
	Tabelas   []string  `json:"tabelas"`
	Linhas    int64     `json:"linhas"`
	Inicio    time.Time `json:"inicio"`
	Fim       time.Time `json:"fim"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCargaConcluidaMessage creates a notification stamped with the current time.
func NewCargaConcluidaMessage(runID, backend string, tabelas []string, linhas int64, inicio time.Time) *CargaConcluidaMessage {
	now := time.Now()
	return &CargaConcluidaMessage{
		RunID:     runID,
		Backend:   backend,
		Tabelas:   tabelas,
		Linhas:    linhas,
		Inicio:    inicio,
		Fim:       now,
		Timestamp: now,
	}
}

// ToJSON converts the message to JSON bytes
func (m *CargaConcluidaMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CargaConcluidaMessageFromJSON creates a message from JSON bytes
func CargaConcluidaMessageFromJSON(data []byte) (*CargaConcluidaMessage, error) {
	var msg CargaConcluidaMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
