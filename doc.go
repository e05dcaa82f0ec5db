// Package identity implements the identity, session, and invitation subsystem
// of the AirLog testing platform: three independent identity domains (a single
// platform super admin, per-company admins, and end-user testers) layered on a
// shared relational store.
//
// Session tokens:
//   - Each domain gets its own TokenService issuing signed, self-contained
//     JWTs carried in an httpOnly cookie. The server keeps no session table;
//     logout is cookie deletion, and a token stays valid until its TTL
//     elapses. Logout documents that tradeoff.
//
// Password lifecycle:
//   - Passwords hash with bcrypt. Reset tokens are random secrets whose
//     SHA-256 digest is the only thing stored; issuing a new token deletes
//     every unused one for that user, and confirmation consumes the token in
//     the same transaction that rewrites the credential.
//
// Invitations:
//   - InviteManager covers company invites (including the permanent,
//     email-less join link), pending session/team invites claimed at signup,
//     and tester invite tokens whose validity derives entirely from the
//     referenced session's status.
//
// All correctness under concurrency is delegated to store-level constraints
// (unique indexes, transactions); the package holds no in-process mutable
// state between requests.
package identity
