// Package sim provides the discrete-event engine that emulates an unreliable
// channel between two reliable-data-transfer endpoints.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go and queue.go: events and the (time, schedule order) heap that orders them
//   - channel.go: loss, corruption and FIFO-preserving delay applied to every packet
//   - simulator.go: the event loop and dispatch to entities
//
// # Architecture
//
// The Simulator owns the clock, the EventQueue and all counters. Everything
// else only schedules future events into the queue:
//   - ArrivalGenerator schedules application messages (FromAppLayer)
//   - Channel schedules packet arrivals (FromNetLayer)
//   - TimerService schedules and cancels per-entity timeouts (TimerInterrupt)
//
// Protocol logic lives outside this package. Implementations of ProtocolEntity
// (see sim/protocol/ for stop-and-wait and go-back-N) reach the channel, their
// timer and the application layer only through the Endpoint they receive in Init.
//
// # Determinism
//
// Randomness comes from a PartitionedRNG keyed by the run seed, with separate
// streams for the workload and the channel. Ties in event time pop in
// schedule order, so a seed and a configuration fully determine a run.
//
// Nothing in this package is safe for concurrent use.
package sim
