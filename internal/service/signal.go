package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/webmemo/schemad"
)

var tracer = otel.Tracer("signal")

// EventChannel is the redis pub/sub channel carrying record-change events.
const EventChannel = "schemad.events"

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, event schemad.Event) error {
	ctx, span := tracer.Start(ctx, "Signal.Service.Publish")
	defer span.End()
	span.SetAttributes(attribute.String("action", event.Action))

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.rdb.Publish(ctx, EventChannel, jsonstr).Err()
}

// Realtime streams record-change events to output until ctx is done. A kinds
// slice received on filters narrows the stream to those subject kinds; an
// empty slice passes everything.
func (s *SignalService) Realtime(ctx context.Context, filters <-chan []string, output chan<- schemad.Event) {
	pubsub := s.rdb.Subscribe(ctx, EventChannel)
	defer pubsub.Close()

	var kinds []string

	for {
		select {
		case <-ctx.Done():
			return
		case kinds = <-filters:
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}

			var event schemad.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.ErrorContext(
					ctx, "failed to decode schema event",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}

			if !kindMatches(kinds, event.Schema.SubjectKind) {
				continue
			}

			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

func kindMatches(kinds []string, kind string) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
