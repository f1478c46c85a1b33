//go:build !(sqlite_vec && cgo)

package index

import (
	_ "modernc.org/sqlite"
)

// driverName selects the pure-Go SQLite driver. Similarity scoring runs in
// Go over the stored blobs, so no extension loading is required.
const driverName = "sqlite"
