package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "net"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Publisher sends StatusChangedEvents to RabbitMQ.  The connection is
// opened lazily on first use and re-opened after any failure, so a broker
// outage at startup does not prevent the API from serving requests.
type Publisher struct {
    url   string
    queue string
    log   logrus.FieldLogger

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewPublisher returns a Publisher for the status notification queue.
func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
    return &Publisher{url: url, queue: StatusChangedQueue, log: log}
}

// dialTimeout bounds a dial when the caller's context carries no deadline.
const dialTimeout = 3 * time.Second

// Publish marshals ev and publishes it as a persistent message on the
// default exchange.  Errors are logged and returned so the caller can
// choose to ignore them.  A reconnect is bounded by ctx and does not block
// concurrent callers.
func (p *Publisher) Publish(ctx context.Context, ev StatusChangedEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    ch, err := p.channel(ctx)
    if err != nil {
        p.log.WithError(err).Warn("rabbitmq: channel unavailable")
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    ev.EventID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",      // default exchange
        p.queue, // routing key = queue name
        false,   // mandatory
        false,   // immediate
        pub,
    ); err != nil {
        p.log.WithError(err).WithField("request_id", ev.RequestID).Warn("rabbitmq: publish failed")
        p.drop(ch)
        return err
    }
    return nil
}

// channel returns the cached channel or dials a new connection.  p.mu is
// only held to read or swap the cached pair, never across the dial.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
    p.mu.Lock()
    if p.usable() {
        ch := p.ch
        p.mu.Unlock()
        return ch, nil
    }
    p.mu.Unlock()

    conn, ch, err := p.dial(ctx)
    if err != nil {
        return nil, err
    }

    p.mu.Lock()
    defer p.mu.Unlock()
    if p.usable() {
        // lost the race to another caller; keep theirs
        _ = ch.Close()
        _ = conn.Close()
        return p.ch, nil
    }
    p.reset()
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *Publisher) dial(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
    conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: dialContext(ctx)})
    if err != nil {
        return nil, nil, fmt.Errorf("dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, nil, fmt.Errorf("channel open: %w", err)
    }
    if err := declareQueue(ch, p.queue); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, nil, err
    }
    return conn, ch, nil
}

// dialContext opens the TCP connection under ctx and sets its deadline for
// the AMQP handshake.  The client clears the deadline once the connection
// is open.
func dialContext(ctx context.Context) func(network, addr string) (net.Conn, error) {
    return func(network, addr string) (net.Conn, error) {
        deadline, ok := ctx.Deadline()
        if !ok {
            deadline = time.Now().Add(dialTimeout)
        }
        d := net.Dialer{Deadline: deadline}
        conn, err := d.DialContext(ctx, network, addr)
        if err != nil {
            return nil, err
        }
        if err := conn.SetDeadline(deadline); err != nil {
            _ = conn.Close()
            return nil, err
        }
        return conn, nil
    }
}

// usable reports whether the cached pair is open.  Callers hold p.mu.
func (p *Publisher) usable() bool {
    return p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed()
}

// drop discards ch if it is still the cached channel.
func (p *Publisher) drop(ch *amqp.Channel) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.ch == ch {
        p.reset()
    }
}

// reset closes the cached pair.  Callers hold p.mu.
func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}

// declareQueue makes sure the queue exists (idempotent).  Durable so
// messages survive broker restarts.
func declareQueue(ch *amqp.Channel, name string) error {
    if _, err := ch.QueueDeclare(
        name,  // name
        true,  // durable
        false, // autoDelete
        false, // exclusive
        false, // noWait
        nil,   // args
    ); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    return nil
}
