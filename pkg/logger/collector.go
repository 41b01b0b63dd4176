package logger

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"sync"
	"time"
)

// Publisher ships a batch of aggregated entries to a topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush period
	CountThreshold int           // distinct entries that force an early flush
	Topic          string
	Publisher      Publisher
	IncludeWarn    bool
}

// AggregatedLogEntry counts repeats of one (level, message, fields, caller).
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector folds repeated error lines into counted entries and publishes
// them in batches, on a timer or once CountThreshold distinct lines pile up.
type LogCollector struct {
	config *CollectionConfig

	mu      sync.Mutex
	entries map[uint64]*AggregatedLogEntry

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	if config.TimeInterval <= 0 {
		config.TimeInterval = 30 * time.Second
	}
	if config.CountThreshold <= 0 {
		config.CountThreshold = 100
	}
	if config.Topic == "" {
		config.Topic = "alphachart.logs"
	}

	c := &LogCollector{
		config:  config,
		entries: make(map[uint64]*AggregatedLogEntry),
		stop:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	k := entryKey(level, message, fields, caller)

	c.mu.Lock()
	e, ok := c.entries[k]
	if ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.entries[k] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	var batch []AggregatedLogEntry
	if len(c.entries) >= c.config.CountThreshold {
		batch = c.takeLocked()
	}
	c.mu.Unlock()

	if batch != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.publish(batch)
		}()
	}
}

// entryKey hashes the identity of a line with fields in key order.
func entryKey(level, message string, fields map[string]interface{}, caller string) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%s\x00%s", level, caller, message)
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(h, "\x00%s=%v", name, fields[name])
	}
	return h.Sum64()
}

func (c *LogCollector) run() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.config.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.stop:
			c.flush()
			return
		}
	}
}

func (c *LogCollector) flush() {
	c.mu.Lock()
	batch := c.takeLocked()
	c.mu.Unlock()
	c.publish(batch)
}

// takeLocked empties the map and returns its entries oldest first.
func (c *LogCollector) takeLocked() []AggregatedLogEntry {
	if len(c.entries) == 0 {
		return nil
	}
	batch := make([]AggregatedLogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		batch = append(batch, *e)
	}
	c.entries = make(map[uint64]*AggregatedLogEntry)
	sort.Slice(batch, func(i, j int) bool { return batch[i].FirstSeen.Before(batch[j].FirstSeen) })
	return batch
}

func (c *LogCollector) publish(batch []AggregatedLogEntry) {
	if len(batch) == 0 || c.config.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.config.Publisher.PublishMessage(ctx, c.config.Topic, batch); err != nil {
		// The collector feeds the logger, so it cannot log through it.
		fmt.Fprintf(os.Stderr, "log collector: publish %d entries to %s: %v\n", len(batch), c.config.Topic, err)
	}
}

// Close flushes what is pending and waits for in-flight publishes.
func (c *LogCollector) Close() {
	close(c.stop)
	c.wg.Wait()
}
