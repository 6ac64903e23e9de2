// Package logging provides leveled logging for the gif-share server.
//
// The level is read once from the LOG_LEVEL environment variable
// (debug, info, warn, error), with DEBUG=1 forcing debug output.
package logging
