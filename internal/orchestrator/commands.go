package orchestrator

// Command is a run-control request applied at the next cycle boundary
type Command string

const (
	CommandPause   Command = "pause"
	CommandResume  Command = "resume"
	CommandRefresh Command = "refresh"
)

// RunState tells whether cycles evaluate symbols
type RunState string

const (
	StateRunning RunState = "RUNNING"
	StatePaused  RunState = "PAUSED"
)

// Pause stops symbol evaluation from the next cycle on
func (e *Engine) Pause() { e.enqueue(CommandPause) }

// Resume restarts symbol evaluation from the next cycle on
func (e *Engine) Resume() { e.enqueue(CommandResume) }

// Refresh asks Run for an immediate cycle that also persists state
func (e *Engine) Refresh() {
	e.enqueue(CommandRefresh)
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Submit enqueues a command by name
func (e *Engine) Submit(cmd Command) bool {
	switch cmd {
	case CommandPause:
		e.Pause()
	case CommandResume:
		e.Resume()
	case CommandRefresh:
		e.Refresh()
	default:
		return false
	}
	return true
}

func (e *Engine) enqueue(cmd Command) {
	e.cmdMu.Lock()
	e.pending = append(e.pending, cmd)
	e.cmdMu.Unlock()
	e.logger.Info("queued %s", cmd)
}

// applyCommands drains the queue in order; the last pause/resume wins
func (e *Engine) applyCommands() (refresh bool) {
	e.cmdMu.Lock()
	cmds := e.pending
	e.pending = nil
	e.cmdMu.Unlock()

	for _, cmd := range cmds {
		switch cmd {
		case CommandPause:
			if !e.paused {
				e.logger.Status("paused")
			}
			e.paused = true
		case CommandResume:
			if e.paused {
				e.logger.Status("resumed")
			}
			e.paused = false
		case CommandRefresh:
			refresh = true
		}
	}
	e.metrics.UpdatePaused(e.paused)
	return refresh
}

func (e *Engine) runState() RunState {
	if e.paused {
		return StatePaused
	}
	return StateRunning
}
