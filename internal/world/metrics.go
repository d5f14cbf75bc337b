package world

import (
	"github.com/annel0/mmo-tiles/internal/world/creature"
	"github.com/annel0/mmo-tiles/internal/world/thing"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics Prometheus-метрики мира
//
// * world_moves_total{kind,result} - попытки перемещения предметов и существ
// * world_events_total{kind} - разобранные события клеток
// * world_deliveries_total - события, доставленные наблюдателям
// * world_tiles{variant} - клетки по видам хранилища
// * world_creatures{kind} - существа на карте
type Metrics struct {
	moves      *prometheus.CounterVec
	events     *prometheus.CounterVec
	deliveries prometheus.Counter
	tiles      *prometheus.GaugeVec
	creatures  *prometheus.GaugeVec
}

// NewMetrics создаёт метрики и регистрирует их в reg. При reg == nil метрики
// считаются, но никуда не экспортируются (удобно для тестов).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "moves_total",
			Help:      "Попытки перемещения объектов по результату.",
		}, []string{"kind", "result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "events_total",
			Help:      "Разобранные события клеток.",
		}, []string{"kind"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "deliveries_total",
			Help:      "События, доставленные наблюдателям.",
		}),
		tiles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "world",
			Name:      "tiles",
			Help:      "Количество клеток по виду хранилища.",
		}, []string{"variant"}),
		creatures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "world",
			Name:      "creatures",
			Help:      "Существа на карте по виду.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.moves, m.events, m.deliveries, m.tiles, m.creatures)
	}
	return m
}

func (m *Metrics) observeMove(kind string, rv thing.ReturnValue) {
	if m == nil {
		return
	}
	m.moves.WithLabelValues(kind, rv.String()).Inc()
}

func (m *Metrics) observeEvent(kind string, delivered int) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
	m.deliveries.Add(float64(delivered))
}

// observeMap обновляет датчики по текущему состоянию карты
func (m *Metrics) observeMap(stats MapStats, reg *creature.Registry) {
	if m == nil {
		return
	}
	m.tiles.WithLabelValues("dynamic").Set(float64(stats.DynamicTiles))
	m.tiles.WithLabelValues("static").Set(float64(stats.StaticTiles))
	m.tiles.WithLabelValues("static_allocated").Set(float64(stats.StaticAllocated))
	for _, kind := range []creature.Kind{creature.KindPlayer, creature.KindMonster, creature.KindNpc} {
		m.creatures.WithLabelValues(kind.String()).Set(float64(reg.Count(kind)))
	}
}
