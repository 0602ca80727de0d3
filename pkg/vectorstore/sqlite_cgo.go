//go:build cgo

// Driver used: github.com/mattn/go-sqlite3 (cgo).
package vectorstore

import _ "github.com/mattn/go-sqlite3"

const sqliteDriverName = "sqlite3"
