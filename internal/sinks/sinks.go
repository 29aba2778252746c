package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"waxworks/internal/bus"
	"waxworks/internal/types"
	"waxworks/internal/utils"
	"waxworks/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Record is one decoded catalog message ready to write: the normalized
// document for graph writes, the canonical source JSON for table writes,
// and the hash both stores key dedup on.
type Record struct {
	Kind      types.EntityKind
	ID        string
	Hash      string
	Norm      map[string]any
	Canonical []byte
}

// Store is the write side a sink drives. ReadHash reports the stored hash
// for a record and whether one exists; Write applies the record
// idempotently.
type Store interface {
	ReadHash(ctx context.Context, kind types.EntityKind, id string) (string, bool, error)
	Write(ctx context.Context, record Record) error
}

// Stats counts per-stream outcomes. Counters are atomic because the
// progress reporter reads them from another goroutine.
type Stats struct {
	Processed atomic.Uint64
	Skipped   atomic.Uint64
	Poisoned  atomic.Uint64
}

// Sink runs the shared per-message protocol over a Store: decode, hash,
// compare against the stored hash, write on change, publish a change hook.
// Poison input is acknowledged and counted, never requeued.
type Sink struct {
	name      string
	store     Store
	publisher *bus.Publisher
	stats     map[types.EntityKind]*Stats
	log       logger.Logger
}

func New(name string, store Store, publisher *bus.Publisher) *Sink {
	stats := make(map[types.EntityKind]*Stats, len(types.EntityKinds))
	for _, kind := range types.EntityKinds {
		stats[kind] = &Stats{}
	}

	return &Sink{
		name:      name,
		store:     store,
		publisher: publisher,
		stats:     stats,
		log:       logger.New("sinks").With("sink", name),
	}
}

func (s *Sink) Name() string {
	return s.name
}

// Stats returns the outcome counters for one stream.
func (s *Sink) Stats(kind types.EntityKind) *Stats {
	return s.stats[kind]
}

// Handler adapts the sink into a bus consumer handler for one stream.
// A nil return acknowledges the message; an error defers to the consumer's
// requeue/dead-letter policy.
func (s *Sink) Handler(kind types.EntityKind) bus.Handler {
	return func(ctx context.Context, delivery amqp.Delivery) error {
		return s.handle(ctx, kind, delivery)
	}
}

func (s *Sink) handle(ctx context.Context, kind types.EntityKind, delivery amqp.Delivery) error {
	log := s.log.Function("handle").With("kind", string(kind), "routingKey", delivery.RoutingKey)
	stats := s.stats[kind]

	record, ok := s.decode(kind, delivery.Body, log, stats)
	if !ok {
		// Poison: acknowledged so it never loops.
		return nil
	}

	storedHash, exists, err := s.store.ReadHash(ctx, kind, record.ID)
	if err != nil {
		return log.Err("failed to read stored hash", err, "id", record.ID)
	}

	if exists && storedHash == record.Hash {
		stats.Skipped.Add(1)
		log.Debug("Record unchanged, skipping", "id", record.ID)
		return nil
	}

	if err := s.store.Write(ctx, record); err != nil {
		return log.Err("failed to write record", err, "id", record.ID)
	}

	stats.Processed.Add(1)

	s.publishChange(ctx, record, exists, delivery.RoutingKey, log)
	return nil
}

// decode unpacks the payload into a Record. Malformed JSON and documents
// without an id are poison: logged, counted, and reported as not-ok.
func (s *Sink) decode(
	kind types.EntityKind,
	body []byte,
	log logger.Logger,
	stats *Stats,
) (Record, bool) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		stats.Poisoned.Add(1)
		log.Er("Skipping malformed message", err)
		return Record{}, false
	}

	canonical, err := utils.CanonicalJSON(body)
	if err != nil {
		stats.Poisoned.Add(1)
		log.Er("Skipping uncanonicalizable message", err)
		return Record{}, false
	}

	norm := types.NormalizeRecord(kind, raw)
	id, _ := norm["id"].(string)
	if id == "" {
		stats.Poisoned.Add(1)
		log.Warn("Skipping message without id")
		return Record{}, false
	}

	return Record{
		Kind:      kind,
		ID:        id,
		Hash:      utils.HashBytes(canonical),
		Norm:      norm,
		Canonical: canonical,
	}, true
}

// publishChange emits the change hook. Failures are logged and swallowed:
// the catalog write already committed and must stay acknowledged.
func (s *Sink) publishChange(
	ctx context.Context,
	record Record,
	existed bool,
	routingKey string,
	log logger.Logger,
) {
	if s.publisher == nil {
		return
	}

	changeType := types.ChangeCreated
	if existed {
		changeType = types.ChangeUpdated
	}

	event := types.ChangeEvent{
		DataType:        string(record.Kind),
		RecordID:        record.ID,
		ChangeType:      changeType,
		ProcessingRunID: RunIDFromRoutingKey(routingKey),
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.publisher.PublishChange(ctx, event); err != nil {
		log.Er("Failed to publish change event", err, "id", record.ID)
	}
}

// ReportProgress logs per-stream outcome totals at the given interval until
// ctx is cancelled. Streams with no traffic yet stay off the line.
func (s *Sink) ReportProgress(ctx context.Context, interval time.Duration) {
	log := s.log.Function("ReportProgress")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fields := make([]any, 0, len(types.EntityKinds)*2)
			for _, kind := range types.EntityKinds {
				stats := s.stats[kind]
				processed := stats.Processed.Load()
				skipped := stats.Skipped.Load()
				poisoned := stats.Poisoned.Load()
				if processed == 0 && skipped == 0 && poisoned == 0 {
					continue
				}
				fields = append(fields, string(kind), fmt.Sprintf(
					"%d processed, %d skipped, %d poisoned",
					processed, skipped, poisoned,
				))
			}
			if len(fields) > 0 {
				log.Info("Ingest progress", fields...)
			}
		}
	}
}

// RunIDFromRoutingKey extracts the processing run id from a catalog routing
// key of the form `{type}.{run_id}`. Keys without a run segment yield "".
func RunIDFromRoutingKey(routingKey string) string {
	_, runID, found := strings.Cut(routingKey, ".")
	if !found {
		return ""
	}
	return runID
}
