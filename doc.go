// Package authstore keeps the signed-in principal of a client session and
// mirrors it into durable storage so a restarted process resumes where it
// left off.
//
// A [Store] is built per namespace through [Builder] or one of the variant
// helpers ([NewUserStore], [NewCompanyStore], [NewAdminStore]). Build starts
// reading the persisted record in the background; [Store.Ready] closes once
// that read has settled the initial state. Store methods are safe to call
// from multiple goroutines.
//
// # Storage policy
//
//   - A corrupt or unreadable record at startup is treated as no session and
//     never surfaced as an error.
//   - SignIn keeps the session in memory even when persisting it fails.
//   - SignOut keeps the session when the record cannot be removed.
//
// # What this package must NOT do
//
//   - Log or persist secrets.
//   - Retry backend calls.
//   - Call listeners after [Store.Close].
package authstore
