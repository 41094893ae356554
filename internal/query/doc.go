// Package query defines the structured requests the compiler accepts.
//
// Requests arrive already schema-checked by the transport layer; this
// package only carries them and applies the bounds every component relies
// on (limit, offset, mode names). Request is a sealed interface so the
// compiler facade can switch exhaustively over reads and writes.
package query
