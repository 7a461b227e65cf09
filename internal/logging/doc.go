// Package logging provides leveled logging for the gallery service.
//
// The level is read once from the DEBUG and LOG_LEVEL environment
// variables; messages below the configured level are dropped.
package logging
