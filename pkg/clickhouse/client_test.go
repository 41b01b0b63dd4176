package clickhouse

import (
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	cfg := ClientConfig{
		Host:        "ch",
		Port:        9000,
		Database:    "alphachart",
		User:        "reader",
		Password:    "pw",
		DialTimeout: 5 * time.Second,
		ReadTimeout: 10 * time.Second,
		MaxExecTime: 30 * time.Second,
	}
	want := "clickhouse://reader:pw@ch:9000/alphachart?dial_timeout=5s&read_timeout=10s&max_execution_time=30"
	if got := buildDSN(cfg); got != want {
		t.Fatalf("buildDSN = %s, want %s", got, want)
	}

	cfg = ClientConfig{Host: "ch", Port: 8123, Database: "db", UseHTTP: true}
	if got := buildDSN(cfg); got != "http://:@ch:8123/db" {
		t.Fatalf("unexpected http dsn %s", got)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(WithPort(9000)); err == nil {
		t.Fatal("expected error without host")
	}
}
