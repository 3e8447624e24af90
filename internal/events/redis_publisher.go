// Package events delivers collaboration events over Redis Pub/Sub. Each plan
// has one channel; connected tripmates subscribe to hear about edits made by
// the others.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wayfarer-app/wayfarer-backend/logger"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

// Config holds configuration for RedisPublisher.
type Config struct {
	PublishTimeout time.Duration
}

// DefaultConfig returns the default publisher configuration.
func DefaultConfig() Config {
	return Config{
		PublishTimeout: 5 * time.Second,
	}
}

type metrics struct {
	publishLatency prometheus.Histogram
	errorCount     *prometheus.CounterVec
	eventCount     *prometheus.CounterVec
}

var (
	metricsInstance *metrics
	metricsOnce     sync.Once
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		metricsInstance = &metrics{
			publishLatency: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "event_publish_duration_seconds",
				Help:    "Time taken to publish events",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			}),
			errorCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "event_errors_total",
				Help: "Total number of event-related errors",
			}, []string{"operation", "type"}),
			eventCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "events_total",
				Help: "Total number of events by operation and type",
			}, []string{"operation", "type"}),
		}
	})
	return metricsInstance
}

// RedisPublisher implements types.EventPublisher using Redis Pub/Sub.
type RedisPublisher struct {
	rdb     *redis.Client
	log     *zap.SugaredLogger
	metrics *metrics
	config  Config
}

// NewRedisPublisher creates a new RedisPublisher instance.
func NewRedisPublisher(rdb *redis.Client, cfg ...Config) *RedisPublisher {
	config := DefaultConfig()
	if len(cfg) > 0 {
		config = cfg[0]
	}
	return &RedisPublisher{
		rdb:     rdb,
		log:     logger.GetLogger().Named("events"),
		metrics: newMetrics(),
		config:  config,
	}
}

// Channel returns the Redis channel name for a plan.
func Channel(planID string) string {
	return fmt.Sprintf("plan:%s", planID)
}

// Publish publishes an event on the plan's channel.
func (p *RedisPublisher) Publish(ctx context.Context, planID string, event types.Event) error {
	start := time.Now()
	defer func() {
		p.metrics.publishLatency.Observe(time.Since(start).Seconds())
	}()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Version == 0 {
		event.Version = 1
	}
	if event.PlanID == "" {
		event.PlanID = planID
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.metrics.errorCount.WithLabelValues("publish", "marshal").Inc()
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, Channel(planID), data).Err(); err != nil {
		p.metrics.errorCount.WithLabelValues("publish", "redis").Inc()
		return fmt.Errorf("redis publish: %w", err)
	}

	p.metrics.eventCount.WithLabelValues("publish", string(event.Type)).Inc()
	return nil
}

// PublishPlanEvent is a convenience wrapper that builds the event envelope
// around an arbitrary payload and publishes it.
func PublishPlanEvent(ctx context.Context, publisher types.EventPublisher, eventType types.EventType, planID, userID string, payload interface{}) error {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		raw = data
	}

	event := types.Event{
		BaseEvent: types.BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			PlanID:    planID,
			UserID:    userID,
			Timestamp: time.Now(),
			Version:   1,
		},
		Payload: raw,
	}
	return publisher.Publish(ctx, planID, event)
}
