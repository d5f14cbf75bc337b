package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/annel0/mmo-tiles/internal/eventbus"
	"github.com/annel0/mmo-tiles/internal/world"
	"github.com/annel0/mmo-tiles/internal/world/npc"
)

const defaultNatsURL = "nats://localhost:4222"

func main() {
	var (
		url      = flag.String("url", defaultNatsURL, "NATS server URL")
		stream   = flag.String("stream", "TILES", "JetStream stream name")
		command  = flag.String("cmd", "tail", "Command: tail, stats")
		types    = flag.String("types", "", "Event types filter (comma-separated)")
		sources  = flag.String("sources", "", "Event sources filter (comma-separated)")
		limit    = flag.Int("limit", 0, "Stop after N events (0 = no limit)")
		duration = flag.Duration("for", 30*time.Second, "Collection window for stats")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus, err := eventbus.NewJetStreamBus(eventbus.JetStreamConfig{URL: *url, Stream: *stream})
	if err != nil {
		log.Fatalf("❌ Failed to connect to NATS: %v", err)
	}
	defer bus.Close()

	filter := eventbus.Filter{Types: parseStringList(*types), Sources: parseStringList(*sources)}

	switch *command {
	case "tail":
		err = tailEvents(ctx, bus, filter, *limit)
	case "stats":
		err = showStats(ctx, bus, filter, *duration)
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("❌ %s failed: %v", *command, err)
	}
}

// tailEvents выводит новые события, пока не прерван или не достигнут лимит
func tailEvents(ctx context.Context, bus eventbus.EventBus, filter eventbus.Filter, limit int) error {
	fmt.Printf("🎬 Tailing events (limit: %d)\n", limit)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu    sync.Mutex
		count int
	)
	_, err := bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		defer mu.Unlock()
		if limit > 0 && count >= limit {
			return
		}
		printEvent(ev)
		count++
		if limit > 0 && count >= limit {
			cancel()
		}
	})
	if err != nil {
		return err
	}
	<-ctx.Done()

	mu.Lock()
	fmt.Printf("\n📊 Total events: %d\n", count)
	mu.Unlock()
	return nil
}

// showStats считает события по типу за окно
func showStats(ctx context.Context, bus eventbus.EventBus, filter eventbus.Filter, window time.Duration) error {
	fmt.Printf("📊 Event statistics for %s\n", window)
	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	var mu sync.Mutex
	byType := make(map[string]int)
	bySource := make(map[string]int)
	_, err := bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		byType[ev.EventType]++
		bySource[ev.Source]++
		mu.Unlock()
	})
	if err != nil {
		return err
	}
	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	printCounts("By type", byType)
	printCounts("By source", bySource)
	return nil
}

func printCounts(title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	total := 0
	for k, n := range counts {
		keys = append(keys, k)
		total += n
	}
	sort.Strings(keys)
	fmt.Printf("\n%s (total %d):\n", title, total)
	for _, k := range keys {
		fmt.Printf("  %-16s %d\n", k, counts[k])
	}
}

// printEvent выводит конверт и разобранную полезную нагрузку
func printEvent(ev *eventbus.Envelope) {
	fmt.Printf("[%s] %s [%s] %s\n", ev.Timestamp.Format("15:04:05.000"), ev.Source, ev.EventType, ev.ID)

	switch ev.EventType {
	case world.EventTypeTileAdded, world.EventTypeTileRemoved, world.EventTypeTileUpdated:
		var p world.TileEventPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			fmt.Printf("  bad payload: %v\n", err)
			return
		}
		fmt.Printf("  Tile: %s #%d %s %s (id %d, count %d) link=%s\n",
			p.Position, p.Index, p.Kind, p.Thing.Name, p.Thing.ID, p.Thing.Count, p.Link)
	case npc.EventTypeSpeech:
		var s npc.Speech
		if err := json.Unmarshal(ev.Payload, &s); err != nil {
			fmt.Printf("  bad payload: %v\n", err)
			return
		}
		fmt.Printf("  %s at %s: %q\n", s.Npc, s.Position, s.Text)
	default:
		fmt.Printf("  %s\n", ev.Payload)
	}
}

// parseStringList разбирает список через запятую
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
