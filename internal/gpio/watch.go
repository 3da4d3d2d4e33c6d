package gpio

import "github.com/nerrad567/gpio-companion/internal/pin"

// startWatcher runs an edge watcher for entry. Callers hold c.mu.
func (c *Controller) startWatcher(entry *pinEntry) {
	entry.stop = make(chan struct{})
	entry.done = make(chan struct{})
	go c.watch(entry, entry.stop, entry.done)
}

// stopWatcher stops entry's watcher, if any, and waits for it to exit.
func (c *Controller) stopWatcher(entry *pinEntry) {
	if entry.stop == nil {
		return
	}
	close(entry.stop)
	<-entry.done
	entry.stop, entry.done = nil, nil
}

// watch reports level changes on an input pin until stop is closed.
// The edge wait runs without entry.mu so commands are never blocked by it.
func (c *Controller) watch(entry *pinEntry, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		default:
		}

		if !entry.line.WaitForEdge(c.opts.WatchTimeout) {
			continue
		}

		entry.mu.Lock()
		high, err := entry.line.Read()
		changed := err == nil && high != entry.level
		if changed {
			entry.level = high
		}
		entry.mu.Unlock()

		if err != nil {
			c.logWarn("edge watcher read failed", "pin", entry.name, "error", err)
			continue
		}
		if !changed {
			continue
		}

		select {
		case <-stop:
			return
		default:
		}

		c.onEdgeMu.RLock()
		fn := c.onEdge
		c.onEdgeMu.RUnlock()
		if fn != nil {
			fn(stateEvent(entry.name, pin.DirectionIn, high))
		}
	}
}
