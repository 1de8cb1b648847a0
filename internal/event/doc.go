// Package event defines the events one rsync run produces and a pub-sub bus
// that fans them out to several consumers.
//
// A run emits an ordered sequence of events that always ends in exactly one
// [FinishedEvent]. The runner hands each event to a single sink function;
// [Bus.Publish] is such a sink, so the TUI, the audit log and the JSON
// printer can all observe the same run without knowing about each other.
//
// # Main Types
//
//   - [Event]: Interface implemented by every event (EventType, Timestamp)
//   - [Stage]: The lifecycle stage of a run (idle, scan, transfer, ...)
//   - [Bus]: Synchronous pub-sub dispatcher, safe for concurrent use
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Types
//
//   - [StageEvent] ("stage"): the run moved to a new stage
//   - [ProgressEvent] ("progress"): a progress line with a percentage
//   - [LogEvent] ("log"): any other output line, tagged info/warn/error
//   - [FinishedEvent] ("finished"): the terminal event of a run
//
// All events marshal to JSON with a "type" discriminator and a "timestamp".
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called
// synchronously on the publishing goroutine, outside the bus lock, so a
// handler may subscribe or unsubscribe without deadlocking. A panicking
// handler is recovered and logged; delivery continues with the remaining
// handlers.
//
// # Basic Usage
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypeFinished, func(e event.Event) {
//	    fin := e.(event.FinishedEvent)
//	    fmt.Println("run ended:", fin.Stage)
//	})
//	err := runner.Start(ctx, opts, bus.Publish)
package event
