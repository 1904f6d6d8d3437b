// Package progress provides the event primitives, the routing hub and the
// emitter interfaces that the monitor worker uses to report what each pass
// did. The hub gives every sink its own backlog: status-line and history
// sinks are routed losslessly, while metrics and hit publishing may drop
// events when they fall behind. Emit never blocks a pass.
package progress
