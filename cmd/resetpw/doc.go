// Command resetpw resets the password of a gif-share account from the
// command line, for operators recovering locked-out accounts.
//
// Usage:
//
//	resetpw reset <username>
//
// The new password is read twice from the terminal without echo.
//
// Environment:
//
//	DATABASE_DIR - Path to database directory (default: /database)
package main
