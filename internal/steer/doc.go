// Package steer implements the cooperative client-steering decision core:
// it tracks known access points and stations, scores roam candidates,
// drives an 802.11k/v roam state machine per station, and enforces
// admission and load-balancing policy.
//
// Engine guards its state with one mutex, taken by Tick,
// NeighborReportReply and every Handle* method; callers on other
// goroutines (the driver adapter, the process's tick loop) call those
// methods directly. There is no event-loop goroutine and no channel.
package steer
