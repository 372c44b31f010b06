// Package cache provides an in-memory LRU cache for blob blocks.
//
// Remote tile stores are read through fixed-size blocks; the cache keeps
// recently read blocks so repeated passes over the same tiles avoid another
// round trip. Cached bytes can be charged to a resource.Controller so the
// cache and in-flight decodes share one memory budget.
package cache
