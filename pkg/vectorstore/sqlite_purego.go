//go:build !cgo

// Driver used: modernc.org/sqlite (pure Go, no C compiler required).
package vectorstore

import _ "modernc.org/sqlite"

const sqliteDriverName = "sqlite"
