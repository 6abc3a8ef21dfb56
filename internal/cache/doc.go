// Package cache provides a keyed store for resources with an explicit
// lifecycle.
//
// Store never evicts: a value lives until the owner deletes it or drains
// the store, at which point the owner releases whatever the value holds.
// This fits GPU objects, which must be destroyed on the device that
// created them rather than dropped by a size policy.
//
//	programs := cache.New[gpucore.Device, *Programs]()
//	p, err := programs.GetOrCreate(dev, func() (*Programs, error) { ... })
//	if old, ok := programs.Delete(dev); ok {
//		old.release()
//	}
//
// Store is safe for concurrent use and must not be copied after creation.
package cache
