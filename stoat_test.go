package stoat

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// Shared test fixture: a bank account aggregate
// =============================================================================

type accountState struct {
	Balance int64 `json:"balance"`
}

type accountOpened struct {
	Initial int64 `json:"initial"`
}

type moneyDeposited struct {
	Amount int64 `json:"amount"`
}

type moneyWithdrawn struct {
	Amount int64 `json:"amount"`
}

type openAccount struct {
	Initial int64
}

func (openAccount) CommandType() string { return "OpenAccount" }
func (openAccount) Kind() CommandKind   { return CommandCreate }

type deposit struct {
	Amount int64
}

func (deposit) CommandType() string { return "Deposit" }
func (deposit) Kind() CommandKind   { return CommandUpdate }

type withdraw struct {
	Amount int64
}

func (withdraw) CommandType() string { return "Withdraw" }
func (withdraw) Kind() CommandKind   { return CommandUpdate }

type noopCommand struct{}

func (noopCommand) CommandType() string { return "Noop" }
func (noopCommand) Kind() CommandKind   { return CommandUpdate }

// accountBehavior implements Behavior for the test account aggregate. The
// hooks make validation slow, failing, or panicking on demand.
type accountBehavior struct {
	validateDelay time.Duration
	panicOn       string
	calls         *callLog
}

// callLog records validated command types in completion order.
type callLog struct {
	mu    sync.Mutex
	types []string
}

func (l *callLog) record(t string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.types = append(l.types, t)
}

func (l *callLog) recorded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.types...)
}

func (b accountBehavior) ValidateCreate(ctx context.Context, cmd Command) ([]interface{}, error) {
	if b.panicOn == cmd.CommandType() {
		panic("validation exploded")
	}
	if b.validateDelay > 0 {
		time.Sleep(b.validateDelay)
	}
	b.calls.record(cmd.CommandType())

	open := cmd.(openAccount)
	if open.Initial < 0 {
		return nil, fmt.Errorf("initial balance must not be negative")
	}
	return []interface{}{accountOpened{Initial: open.Initial}}, nil
}

func (b accountBehavior) ValidateUpdate(ctx context.Context, cmd Command, state interface{}) ([]interface{}, error) {
	if b.panicOn == cmd.CommandType() {
		panic("validation exploded")
	}
	if b.validateDelay > 0 {
		time.Sleep(b.validateDelay)
	}
	b.calls.record(cmd.CommandType())

	account := state.(accountState)
	switch c := cmd.(type) {
	case deposit:
		if c.Amount <= 0 {
			return nil, fmt.Errorf("deposit must be positive")
		}
		return []interface{}{moneyDeposited{Amount: c.Amount}}, nil
	case withdraw:
		if c.Amount > account.Balance {
			return nil, fmt.Errorf("insufficient funds: balance %d, requested %d", account.Balance, c.Amount)
		}
		return []interface{}{moneyWithdrawn{Amount: c.Amount}}, nil
	case noopCommand:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown command %T", cmd)
	}
}

func (b accountBehavior) ApplyCreate(event interface{}) interface{} {
	opened := event.(accountOpened)
	return accountState{Balance: opened.Initial}
}

func (b accountBehavior) ApplyUpdate(event interface{}, state interface{}) interface{} {
	account := state.(accountState)
	switch e := event.(type) {
	case moneyDeposited:
		account.Balance += e.Amount
	case moneyWithdrawn:
		account.Balance -= e.Amount
	}
	return account
}

func (b accountBehavior) IsCreationEvent(event interface{}) bool {
	_, ok := event.(accountOpened)
	return ok
}

// registerAccountEvents registers the fixture's event and state types with a
// worker's serializer so recovery can round-trip them.
func registerAccountEvents(s Serializer) {
	if js, ok := s.(*JSONSerializer); ok {
		js.RegisterAll(accountOpened{}, moneyDeposited{}, moneyWithdrawn{}, accountState{})
	}
}
