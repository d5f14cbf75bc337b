package eventbus

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/mmo-tiles/internal/logging"
	nats "github.com/nats-io/nats.go"
)

// SubjectPrefix префикс subject событий: tiles.<EventType>
const SubjectPrefix = "tiles"

// JetStreamConfig параметры подключения
type JetStreamConfig struct {
	URL string
	// Stream имя потока (по умолчанию TILES)
	Stream    string
	Retention time.Duration
	// Compress сжимать конверты zstd
	Compress bool
}

// JetStreamBus реализует EventBus поверх NATS JetStream.
type JetStreamBus struct {
	nc        *nats.Conn
	js        nats.JetStreamContext
	stream    string
	compress  bool
	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// NewJetStreamBus подключается к NATS и создаёт поток, если его нет.
func NewJetStreamBus(cfg JetStreamConfig) (*JetStreamBus, error) {
	if cfg.Stream == "" {
		cfg.Stream = "TILES"
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("mmo-tiles"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err = js.StreamInfo(cfg.Stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      cfg.Stream,
			Subjects:  []string{SubjectPrefix + ".*"},
			Retention: nats.LimitsPolicy,
			MaxAge:    cfg.Retention,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("add stream: %w", err)
		}
		logging.Info("📡 Создан поток JetStream %s", cfg.Stream)
	}

	return &JetStreamBus{nc: nc, js: js, stream: cfg.Stream, compress: cfg.Compress}, nil
}

// Subject subject события данного типа
func Subject(eventType string) string {
	return SubjectPrefix + "." + eventType
}

// Publish публикует конверт в subject tiles.<EventType>.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, encoding, err := EncodeEnvelope(ev, jb.compress)
	if err != nil {
		jb.dropped.Add(1)
		return err
	}

	msg := nats.NewMsg(Subject(ev.EventType))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, ev.ID)
	if encoding != "" {
		msg.Header.Set("Content-Encoding", encoding)
	}

	if _, err := jb.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		jb.dropped.Add(1)
		return fmt.Errorf("публикация %s: %w", ev.EventType, err)
	}
	jb.published.Add(1)
	return nil
}

// Subscribe создаёт эфемерного потребителя новых событий. Фильтр по типу
// с одним значением сужает subject, остальное проверяется на стороне клиента.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subj := SubjectPrefix + ".*"
	if len(f.Types) == 1 {
		subj = Subject(f.Types[0])
	}

	natSub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		defer func() { _ = msg.Ack() }()
		ev, err := DecodeEnvelope(msg.Data, msg.Header.Get("Content-Encoding"))
		if err != nil {
			logging.Warn("JetStream: %v", err)
			jb.dropped.Add(1)
			return
		}
		if !f.Match(ev) {
			return
		}
		h(ctx, ev)
		jb.consumed.Add(1)
	}, nats.ManualAck(), nats.DeliverNew(), nats.AckWait(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("подписка %s: %w", subj, err)
	}

	sub := &jetSub{s: natSub}
	go func() {
		<-ctx.Done()
		sub.Unsubscribe()
	}()
	return sub, nil
}

// jetSub обёртка вокруг *nats.Subscription
type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	if j.s.IsValid() {
		_ = j.s.Unsubscribe()
	}
}

// Metrics возвращает текущие метрики.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: jb.published.Load(),
		Consumed:  jb.consumed.Load(),
		Dropped:   jb.dropped.Load(),
	}
}

// Close дожидается отправки и закрывает соединение
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}
