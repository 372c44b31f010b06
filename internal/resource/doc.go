// Package resource bounds the memory and IO used by bulk tile extraction.
//
//   - Memory: a weighted semaphore over the bytes of tile files held at
//     once. AcquireMemory blocks until budget frees up.
//   - IO: a token bucket over bytes read from the tile store.
//
// Usage:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   256 << 20,
//	    IOLimitBytesPerSec: 50 << 20,
//	})
//
//	if err := rc.AcquireMemory(ctx, size); err != nil {
//	    return err
//	}
//	defer rc.ReleaseMemory(size)
//
//	if err := rc.AcquireIO(ctx, size); err != nil {
//	    return err
//	}
//
// All methods are safe for concurrent use and treat a nil *Controller as
// unlimited.
package resource
