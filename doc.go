// Package ilp serializes structured measurement rows into the InfluxDB Line
// Protocol text format and delivers them to a time-series database ingestion
// endpoint over TCP, TLS or HTTP(S).
//
// The central type is Sender: append typed rows (symbols, fields, optional
// timestamp) into its buffer, and let the auto-flush policy or an explicit
// Flush drain the buffer over the network. Row construction errors are
// always local and leave the buffer's committed rows untouched; transport
// faults are retried with backoff and surfaced with the buffer intact.
//
//	sender, err := ilp.FromConf("tcp::addr=localhost:9009;")
//	if err != nil { ... }
//	defer sender.Close(ctx)
//
//	sender.Table("sensor")
//	sender.Symbol("city", "ldn")
//	sender.Float64Field("temp", 21.5)
//	err = sender.At(ctx, time.Now())
package ilp
