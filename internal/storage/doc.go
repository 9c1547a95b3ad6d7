// Package storage is the persistence layer behind the bot and the web API.
//
// It owns:
//   - Poll schedules (recurring weekly rules)
//   - Training registrations (capacity-bounded, with waitlist promotion)
//   - One-time trainings
//   - Invite codes and the web user roster
//   - Bot settings (default poll template, admin ids) and active polls
//
// All mutations persist immediately; there is no caching layer. The SQLite
// backend keeps a single open connection, which is the serialization point for
// the count-then-upsert registration path.
package storage
