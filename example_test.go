package ilp_test

import (
	"context"
	"log"
	"time"

	"github.com/pior/ilp"
)

// Example shows the typical producer loop: open a sender from a conf
// string, append rows, and let auto-flush (or Close) drain the buffer.
func Example() {
	sender, err := ilp.FromConf("tcp::addr=localhost:9009;")
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	defer sender.Close(ctx)

	sender.Table("sensor")
	sender.Symbol("city", "ldn")
	sender.Float64Field("temp", 21.5)
	if err := sender.At(ctx, time.Now()); err != nil {
		log.Fatal(err)
	}
}

// ExampleConfig configures a sender explicitly, with a circuit breaker
// guarding flushes.
func ExampleConfig() {
	conf := ilp.Config{
		Protocol:          ilp.ProtocolHTTPS,
		Address:           "db.example.com:9000",
		Token:             "my-ingestion-token",
		AutoFlushRows:     1000,
		GzipRequests:      true,
		NewCircuitBreaker: nil, // see NewCircuitBreakerConfig
	}

	sender, err := ilp.New(conf)
	if err != nil {
		log.Fatal(err)
	}
	defer sender.Close(context.Background())
}
