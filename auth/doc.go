/*
Package auth defines potentially multiple mechanisms to determine whether supplied
user credentials via an IMAP session can be found in a defined user information
system. Implementations include a SQLite user database also used by the offline
user management commands, a plain text file of user records, and a lookup against
a PostgreSQL database. Password verification is a bcrypt comparison against the
stored hash in all cases, so an adapter only has to answer user lookups.
*/
package auth
