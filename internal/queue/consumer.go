package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Handler processes one decoded event.  A returned error rejects the
// message without requeueing it.
type Handler func(ctx context.Context, ev StatusChangedEvent) error

// Consumer reads the status notification queue and hands every event to
// a Handler.
type Consumer struct {
    url      string
    queue    string
    prefetch int
    handle   Handler
    log      logrus.FieldLogger
}

// NewConsumer returns a Consumer for the status notification queue.
func NewConsumer(url string, h Handler, log logrus.FieldLogger) *Consumer {
    return &Consumer{url: url, queue: StatusChangedQueue, prefetch: 50, handle: h, log: log}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Dial
// failures back off exponentially up to 30s; a dropped connection is
// re-established.  Run only returns once ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.WithError(err).Warnf("notify-consumer: failed to dial broker; retrying in %s", backoff)
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.WithError(err).Warn("notify-consumer: consume loop ended; reconnecting")
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(c.prefetch, 0, false); err != nil {
        c.log.WithError(err).Warn("notify-consumer: set QoS failed")
    }
    if err := declareQueue(ch, c.queue); err != nil {
        return err
    }
    msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.process(ctx, d.Body); err != nil {
                c.log.WithError(err).WithField("message_id", d.MessageId).Warn("notify-consumer: handle message failed")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *Consumer) process(ctx context.Context, body []byte) error {
    ev, err := decodeEvent(body)
    if err != nil {
        return err
    }
    return c.handle(ctx, ev)
}

func decodeEvent(body []byte) (StatusChangedEvent, error) {
    var ev StatusChangedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return ev, fmt.Errorf("unmarshal: %w", err)
    }
    if ev.RequestID == 0 || ev.ToStatus == "" {
        return ev, errors.New("event misses request_id or to_status")
    }
    return ev, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
