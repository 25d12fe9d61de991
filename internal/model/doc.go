// Package model defines the shared vocabulary of the booking coordination
// engine: calendar days and slots, bookable subjects, engagements,
// notifications, and the coded error type every layer reports through.
//
// The package is deliberately free of I/O and of dependencies on the other
// engine packages so that the conflict detector, state machine, remote
// contract, and consistency layer can all speak the same types without
// import cycles.
package model
