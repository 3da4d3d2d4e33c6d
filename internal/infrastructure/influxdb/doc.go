// Package influxdb records pin events in InfluxDB for later analysis.
//
// Telemetry is optional: with influxdb.enabled false the companion runs
// without it. When enabled, every applied EVENT, every reply and every
// input edge becomes a point in the pin_events measurement.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.RecordPinEvent(token, cmd)
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval.
package influxdb
