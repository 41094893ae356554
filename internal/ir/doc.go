// Package ir provides the canonical value types shared by the filter model,
// the script generator and the result cache.
//
// This package imports nothing internal. Every literal that crosses into a
// generated script or into a cache key is an ir.Value, so the set of
// representable shapes is closed:
//   - Null, String, Int, Bool, Array, Object
//   - NO floats: numeric fields in the task domain (estimates, counts) are
//     whole numbers, and integral JSON numbers are narrowed to Int
//
// Canonical encoding follows RFC 8785 (sorted UTF-16 keys, NFC strings, no
// HTML escaping) and is the only encoding used for content-addressed keys.
package ir
