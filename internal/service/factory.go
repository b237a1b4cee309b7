package service

import (
	"factoryops.app/assistant/internal/brain"
	"factoryops.app/assistant/internal/data"
	"factoryops.app/assistant/internal/memory"
	"factoryops.app/assistant/internal/metrics"
	"factoryops.app/assistant/internal/queue"
)

type Services struct {
	orchestrator *brain.Orchestrator
	engine       *metrics.Engine
	source       data.Source
	memory       *memory.Repository
	producer     queue.Producer
	factoryName  string
}

func NewServices(orchestrator *brain.Orchestrator, engine *metrics.Engine, source data.Source, mem *memory.Repository, producer queue.Producer, factoryName string) *Services {
	return &Services{
		orchestrator: orchestrator,
		engine:       engine,
		source:       source,
		memory:       mem,
		producer:     producer,
		factoryName:  factoryName,
	}
}

func (s *Services) Chat() ChatService {
	return NewChatService(s.orchestrator, s.source, s.memory, s.factoryName, s.producer)
}

func (s *Services) Metrics() MetricsService {
	return NewMetricsService(s.engine, s.source)
}

func (s *Services) Memory() MemoryService {
	return NewMemoryService(s.memory)
}

func (s *Services) Traceability() TraceabilityService {
	return NewTraceabilityService(s.source)
}
