package eventbus

import (
	"context"

	"github.com/annel0/mmo-tiles/internal/logging"
)

// StartLoggingListener пишет в лог каждое событие шины (уровень Debug).
// Функция неблокирующая; подписка живёт до отмены ctx.
func StartLoggingListener(ctx context.Context, bus EventBus, f Filter) (Subscription, error) {
	sub, err := bus.Subscribe(ctx, f, func(_ context.Context, ev *Envelope) {
		logging.Debug("[EventBus] %s %s src=%s prio=%d pos=%s size=%dB",
			ev.ID, ev.EventType, ev.Source, ev.Priority, ev.Metadata["position"], len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	logging.Info("🪵 LoggingListener: подписка на события активирована")
	return sub, nil
}
