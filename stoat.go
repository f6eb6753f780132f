// Package stoat provides the command-processing core of an event-sourced
// aggregate: a per-aggregate worker that accepts commands, validates them
// against current state, persists the resulting events in order, folds them
// into in-memory state, and replies to the caller.
//
// State is never stored directly. It is derived by replaying a durable,
// ordered log of events, optionally short-cut by snapshots. At most one
// command is in flight per aggregate instance at any time; commands arriving
// while one is being validated are queued and processed in arrival order.
//
// # Quick Start
//
// Supply the domain decision logic as a Behavior and back the worker with an
// event log adapter. The in-memory adapter is suitable for development and
// tests:
//
//	import (
//	    "github.com/AshkanYarmoradi/go-stoat"
//	    "github.com/AshkanYarmoradi/go-stoat/adapters/memory"
//	)
//
//	log := memory.NewAdapter()
//	worker, err := stoat.NewWorker("Account", "42", accountBehavior{}, log,
//	    stoat.WithSnapshotStore(log),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := worker.Start(ctx); err != nil {
//	    return err
//	}
//	defer worker.Stop(ctx)
//
//	result, err := worker.Execute(ctx, OpenAccount{Owner: "alice"})
//
// For production, use the PostgreSQL adapter:
//
//	adapter, err := postgres.NewAdapter(connStr)
//	if err != nil {
//	    return err
//	}
//	if err := adapter.Initialize(ctx); err != nil {
//	    return err
//	}
//
// # Defining a Behavior
//
// A Behavior maps creation commands to events, update commands plus current
// state to events, and events back to state. It is pure domain logic; the
// worker owns all sequencing, persistence and concurrency:
//
//	type accountBehavior struct{}
//
//	func (accountBehavior) ValidateCreate(ctx context.Context, cmd stoat.Command) ([]interface{}, error) {
//	    c := cmd.(OpenAccount)
//	    if c.Owner == "" {
//	        return nil, errors.New("owner is required")
//	    }
//	    return []interface{}{AccountOpened{Owner: c.Owner}}, nil
//	}
//
//	func (accountBehavior) ValidateUpdate(ctx context.Context, cmd stoat.Command, state interface{}) ([]interface{}, error) {
//	    acct := state.(Account)
//	    switch c := cmd.(type) {
//	    case Deposit:
//	        return []interface{}{Deposited{Amount: c.Amount}}, nil
//	    case Withdraw:
//	        if acct.Balance < c.Amount {
//	            return nil, errors.New("insufficient funds")
//	        }
//	        return []interface{}{Withdrawn{Amount: c.Amount}}, nil
//	    }
//	    return nil, fmt.Errorf("unknown command %q", cmd.CommandType())
//	}
//
//	func (accountBehavior) ApplyCreate(event interface{}) interface{} {
//	    e := event.(AccountOpened)
//	    return Account{Owner: e.Owner}
//	}
//
//	func (accountBehavior) ApplyUpdate(event interface{}, state interface{}) interface{} {
//	    acct := state.(Account)
//	    switch e := event.(type) {
//	    case Deposited:
//	        acct.Balance += e.Amount
//	    case Withdrawn:
//	        acct.Balance -= e.Amount
//	    }
//	    return acct
//	}
//
//	func (accountBehavior) IsCreationEvent(event interface{}) bool {
//	    _, ok := event.(AccountOpened)
//	    return ok
//	}
//
// Commands declare whether they create or update an aggregate:
//
//	type OpenAccount struct{ Owner string }
//
//	func (OpenAccount) CommandType() string     { return "OpenAccount" }
//	func (OpenAccount) Kind() stoat.CommandKind { return stoat.CommandCreate }
//
// # Running Many Aggregates
//
// A Runtime routes commands to per-aggregate workers, spawning them on demand
// (with recovery before the first command) and passivating them after the
// configured idle timeout:
//
//	rt, err := stoat.NewRuntime("Account", accountBehavior{}, log,
//	    stoat.WithSnapshotStore(log),
//	    stoat.WithConfig(stoat.Config{SnapshotThreshold: 10, IdleTimeout: 5 * time.Minute}),
//	)
//
//	result, err := rt.Execute(ctx, "42", Deposit{Amount: 10})
//	state, err := rt.GetState(ctx, "42")
//
// # Snapshots and Recovery
//
// After every applied event a counter is incremented; when it reaches the
// configured threshold (default 10) the worker persists a snapshot of
// (lifecycle, state) and resets the counter. Snapshot writes never block
// command replies; failures are logged and the snapshot is simply retried at
// the next threshold crossing.
//
// On start a worker consumes its recovery stream: the latest snapshot offer,
// then every event recorded after it, in order. Recovery has no observable
// side effects beyond rebuilding state.
//
// Register event and state types with the serializer so they round-trip
// through storage:
//
//	worker, err := stoat.NewWorker("Account", "42", accountBehavior{}, log,
//	    stoat.WithSerializer(stoat.NewJSONSerializer()),
//	)
//	worker.Serializer().(*stoat.JSONSerializer).RegisterAll(
//	    AccountOpened{}, Deposited{}, Withdrawn{}, Account{},
//	)
package stoat

// Version returns the library version string.
func Version() string {
	return "0.1.0"
}

// BuildStreamID creates a stream ID from an aggregate category and ID.
// This follows the convention: "{Category}-{ID}"
func BuildStreamID(category, aggregateID string) string {
	return category + "-" + aggregateID
}
