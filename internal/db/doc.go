// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// Package db stores the download history.
//
// A Store wraps a long-lived *bun.DB for one of the supported engines
// (sqlite, postgres, mysql). NewStoreFromDSN opens the database, tunes the
// connection pool and applies the embedded migrations under
// migrations/<engine>/ before handing the Store out.
//
// Testing notes
//   - Use an in-memory sqlite DSN such as "file:<name>?mode=memory&cache=shared"
//     to get real migrations and SQL semantics without touching disk.
//   - Callers outside this package should depend on small interfaces of their
//     own (see bot.History) rather than on *Store.
package db
