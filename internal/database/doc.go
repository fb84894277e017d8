// Package database provides SQLite-based history storage for contactscan.
//
// Every batch saved with ResultDB.SaveRun becomes a run identified by a
// UUID. Each site in the batch is stored as one row keyed by its
// normalized URL, so a site's results can be compared across runs.
//
// The store uses modernc.org/sqlite, a CGO-free driver, and keeps a
// single database file under the XDG data directory by default.
package database
