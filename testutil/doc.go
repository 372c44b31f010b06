// Package testutil provides deterministic fixtures for tile tests.
//
// This package is intended for use in tests and benchmarks only.
// It generates random column schemas, records that match them, and
// spatial keys, all driven by a seeded RNG so failures reproduce.
//
//	rng := testutil.NewRNG(seed)
//	cols := rng.Columns(6)
//	recs := rng.Records(cols, 100)
//	key := rng.SpatialKey(3)
package testutil
