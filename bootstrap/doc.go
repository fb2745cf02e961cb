// Package bootstrap brings a named feature online through an ordered list of
// readiness gates.
//
// An Orchestrator walks its Stages in order on every attempt. A gate that
// fails retryably aborts the attempt; the whole sequence is retried from the
// first stage after a fixed delay, up to MaxAttempts. A gate failure wrapped
// with Fatal ends the run at once. The final stage may be marked
// Recoverable, which gives it a small secondary retry budget inside the
// current attempt before the attempt itself is abandoned.
//
// Recovery after a failed run is event driven. Attach subscribes the
// orchestrator to an EventBus: an error or rejection whose message mentions
// the feature schedules one fresh run, and a visibility event refreshes a
// feature that is already Ready. All timers belong to the orchestrator and
// are cancelled by Close.
//
//	reg := bootstrap.NewRegistry()
//	orch := bootstrap.New(bootstrap.Config{
//	    Feature: "social",
//	    Stages: []bootstrap.Stage{
//	        bootstrap.AuthGate(tokens),
//	        bootstrap.ElementsGate(doc, "friends-list"),
//	        bootstrap.ServiceGate(reg, "api", newAPI),
//	        bootstrap.ControllerGate(reg, "social", newSocial),
//	    },
//	})
//	defer orch.Close()
//	detach := orch.Attach(bus)
//	defer detach()
//	result, err := orch.Run(ctx)
package bootstrap
