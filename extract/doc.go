// Package extract walks a tile store and streams decoded rows to a sink.
//
// Files are read and decoded concurrently under an optional memory budget
// and IO rate limit, then handed to the sink one at a time in name order.
// A file that cannot be read or parsed is counted and logged; it never
// stops the batch. Only a sink error or a cancelled context ends Run early.
//
//	x := extract.New(store,
//		extract.WithProfiles(ephtile.StarProfile()),
//		extract.WithConcurrency(8),
//		extract.WithPerFileTimeout(30*time.Second),
//	)
//	stats, err := x.Run(ctx, "Norder3/", sink)
package extract
