package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"AlphaChart/internal/domain/models"
)

type capturePublisher struct {
	topic  string
	key    []byte
	value  interface{}
	closed bool
}

func (c *capturePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	c.topic, c.key, c.value = topic, key, value
	return nil
}

func (c *capturePublisher) Close() error {
	c.closed = true
	return nil
}

func TestKafkaRefreshPublisher(t *testing.T) {
	cp := &capturePublisher{}
	pub := NewKafkaRefreshPublisher(cp, "")

	ev := models.RefreshEvent{
		Symbol:     "AAPL",
		Resolution: models.Intraday,
		Bars:       78,
		LastBar:    time.Date(2024, 3, 12, 15, 55, 0, 0, time.UTC),
		FetchedAt:  time.Date(2024, 3, 12, 16, 0, 0, 0, time.UTC),
	}
	if err := pub.PublishRefresh(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if cp.topic != DefaultRefreshTopic || string(cp.key) != "AAPL" {
		t.Fatalf("unexpected routing topic=%s key=%s", cp.topic, cp.key)
	}
	b, _ := json.Marshal(cp.value)
	var got map[string]interface{}
	_ = json.Unmarshal(b, &got)
	if got["resolution"] != "5min" || got["bars"] != float64(78) {
		t.Fatalf("unexpected payload %s", b)
	}

	if err := pub.Close(); err != nil || !cp.closed {
		t.Fatal("close not forwarded")
	}
}
