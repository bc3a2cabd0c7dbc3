package subagents

// Collector accumulates plan suggestions against task records. Suggestions
// stay visible on every subsequent Drain until the caller applies them
// externally; a terminal task's plan never grows.
type Collector struct {
	store *Store
}

// NewCollector creates a Collector over the given store.
func NewCollector(store *Store) *Collector {
	return &Collector{store: store}
}

// Record appends a suggestion to the task's record. Suggestions for unknown
// or already-terminal tasks are dropped silently.
func (c *Collector) Record(taskID string, sg PlanSuggestion) {
	c.store.appendSuggestion(taskID, sg)
}

// Drain returns the suggestions accumulated so far, in emission order,
// without clearing them. Unknown ids yield ErrTaskNotFound.
func (c *Collector) Drain(taskID string) ([]PlanSuggestion, error) {
	snap, err := c.store.Snapshot(taskID)
	if err != nil {
		return nil, err
	}
	return snap.Suggestions, nil
}
