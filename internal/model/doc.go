// Package model defines shared data types used across the rate hub.
//
// Conventions:
//   - Gold prices: whole units of the quote currency (TRY), rounded
//   - FX prices: decimal, rounded to the pair's configured precision
//   - Tick timestamps: int64 milliseconds since Unix epoch
//   - Missing values: nil pointers, serialized as JSON null (keys are never omitted)
package model
