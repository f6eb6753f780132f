package stoat

// applyEvent folds one event onto an optional current state.
//
// Policy:
//   - absent state + creation event: behavior's ApplyCreate
//   - present state + update event: behavior's ApplyUpdate
//   - any mismatched combination: state unchanged, logged at debug level
//
// Mismatches are ignored rather than surfaced so replay stays robust to
// foreign event kinds in a stream; the diagnostic log line is the only trace.
func applyEvent(b Behavior, s State, event interface{}, logger Logger) State {
	if b.IsCreationEvent(event) {
		if s.IsPresent() {
			logger.Debug("ignoring creation event for initialized state", "event", GetEventType(event))
			return s
		}
		return PresentState(b.ApplyCreate(event))
	}

	if !s.IsPresent() {
		logger.Debug("ignoring update event for uninitialized state", "event", GetEventType(event))
		return s
	}
	return PresentState(b.ApplyUpdate(event, s.Value()))
}

// Fold applies events in order onto a starting state and returns the result.
// Folding the full event stream from EmptyState reconstructs exactly the
// state a live worker would hold after processing the commands that produced
// those events.
func Fold(b Behavior, s State, events ...interface{}) State {
	logger := &noopLogger{}
	for _, event := range events {
		s = applyEvent(b, s, event, logger)
	}
	return s
}
