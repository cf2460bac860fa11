// Package database provides the TimescaleDB connection pool and schema used by
// the quote price writer.
//
// Table quote_prices(time, symbol, bid, ask, mid) is append-only. When the
// timescaledb extension is present it is converted to a hypertable on time.
package database
