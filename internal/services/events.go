package services

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// 活动事件类型
const (
	EventFollow   = "follow"
	EventLike     = "like"
	EventBookmark = "bookmark"
	EventComment  = "comment"
	EventPost     = "post"
)

// ActivityEvent is emitted after a state change commits. Active is the
// resulting state for toggles and always true for creations.
type ActivityEvent struct {
	Type     string    `json:"type"`
	ActorID  uint      `json:"actorId"`
	TargetID uint      `json:"targetId"`
	Active   bool      `json:"active"`
	At       time.Time `json:"at"`
}

// Publisher accepts events without blocking the request path.
type Publisher interface {
	Publish(ev ActivityEvent)
}

// EventSink receives batches from the dispatcher.
type EventSink interface {
	WriteEvents(ctx context.Context, events []ActivityEvent) error
	Close() error
}

// Dispatcher 异步批量投递活动事件，队列满时直接丢弃，不影响主流程
type Dispatcher struct {
	queue     chan ActivityEvent
	sink      EventSink
	batchSize int
	interval  time.Duration

	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewDispatcher(sink EventSink, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 1000
	}
	d := &Dispatcher{
		queue:     make(chan ActivityEvent, buffer),
		sink:      sink,
		batchSize: 50,
		interval:  500 * time.Millisecond,
		quit:      make(chan struct{}),
	}
	d.wg.Add(1)
	go d.worker()
	return d
}

// Publish 非阻塞发送到队列
func (d *Dispatcher) Publish(ev ActivityEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	select {
	case d.queue <- ev:
	default:
		log.Printf("activity queue full, dropping %s event for %d", ev.Type, ev.ActorID)
	}
}

// Close flushes whatever is queued and closes the sink.
func (d *Dispatcher) Close() error {
	d.once.Do(func() { close(d.quit) })
	d.wg.Wait()
	return d.sink.Close()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	batch := make([]ActivityEvent, 0, d.batchSize)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-d.queue:
			batch = append(batch, ev)
			if len(batch) >= d.batchSize {
				d.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				d.flush(batch)
				batch = batch[:0]
			}
		case <-d.quit:
			// 退出前把队列里剩下的全部发出
			for {
				select {
				case ev := <-d.queue:
					batch = append(batch, ev)
				default:
					if len(batch) > 0 {
						d.flush(batch)
					}
					return
				}
			}
		}
	}
}

func (d *Dispatcher) flush(batch []ActivityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.sink.WriteEvents(ctx, batch); err != nil {
		log.Printf("failed to deliver %d activity events: %v", len(batch), err)
	}
}

// KafkaSink writes events as JSON, keyed by actor so one user's activity
// stays ordered within a partition.
type KafkaSink struct {
	w *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (k *KafkaSink) WriteEvents(ctx context.Context, events []ActivityEvent) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatUint(uint64(ev.ActorID), 10)),
			Value: value,
			Time:  ev.At,
		})
	}
	return k.w.WriteMessages(ctx, msgs...)
}

func (k *KafkaSink) Close() error {
	return k.w.Close()
}

// LogSink is used when no broker is configured.
type LogSink struct{}

func (LogSink) WriteEvents(_ context.Context, events []ActivityEvent) error {
	for _, ev := range events {
		log.Printf("activity: %s actor=%d target=%d active=%t", ev.Type, ev.ActorID, ev.TargetID, ev.Active)
	}
	return nil
}

func (LogSink) Close() error { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(ActivityEvent) {}
