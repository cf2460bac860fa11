// Package writer implements the sinks that persist or publish price updates.
//
// Sinks:
//   - TimescaleWriter batches updates into the quote_prices table
//   - KafkaPublisher sends each update to a topic keyed by symbol
//   - RedisCache keeps the latest quote per symbol in a hash with a TTL
//
// Every sink implements consumer.Consumer and io.Closer, so a FanOut can
// drive and close it.
package writer
