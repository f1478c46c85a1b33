//go:build sqlite_vec && cgo

package index

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

// driverName selects the cgo SQLite driver with the sqlite-vec extension
// auto-loaded, for deployments that want in-database similarity search.
const driverName = "sqlite3"

func init() {
	vec.Auto()
}
