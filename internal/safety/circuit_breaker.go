package safety

import (
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Call while the breaker rejects work
var ErrCircuitOpen = stderrors.New("circuit breaker is open")

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

// String returns the string representation of the circuit breaker state
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold uint32        // consecutive failures before opening
	SuccessThreshold uint32        // successes to close from half-open
	Timeout          time.Duration // cool-down before a half-open probe
}

// CircuitBreaker stops calling a failing source until its cool-down expires
type CircuitBreaker struct {
	config        CircuitBreakerConfig
	state         CircuitBreakerState
	failures      uint32
	successes     uint32
	lastFailure   time.Time
	nextAttempt   time.Time
	mutex         sync.Mutex
	name          string
	now           func() time.Time
	onStateChange func(name string, from, to CircuitBreakerState)
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 3
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 1
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Minute
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
		name:   name,
		now:    time.Now,
	}
}

// SetStateChangeCallback sets a callback invoked synchronously after each transition
func (cb *CircuitBreaker) SetStateChangeCallback(callback func(name string, from, to CircuitBreakerState)) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.onStateChange = callback
}

// Call executes fn unless the breaker is open
func (cb *CircuitBreaker) Call(fn func() error) error {
	change, ok := cb.acquire()
	if !ok {
		return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
	}
	cb.notify(change)

	err := fn()

	if err != nil {
		change = cb.recordFailure()
	} else {
		change = cb.recordSuccess()
	}
	cb.notify(change)
	return err
}

type transition struct {
	from, to CircuitBreakerState
	callback func(name string, from, to CircuitBreakerState)
}

func (cb *CircuitBreaker) acquire() (*transition, bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Before(cb.nextAttempt) {
			return nil, false
		}
		return cb.changeState(StateHalfOpen), true
	default:
		return nil, true
	}
}

func (cb *CircuitBreaker) recordSuccess() *transition {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			return cb.changeState(StateClosed)
		}
	}
	return nil
}

func (cb *CircuitBreaker) recordFailure() *transition {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.lastFailure = cb.now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			return cb.changeState(StateOpen)
		}
	case StateHalfOpen:
		return cb.changeState(StateOpen)
	}
	return nil
}

// changeState must be called with the mutex held
func (cb *CircuitBreaker) changeState(newState CircuitBreakerState) *transition {
	oldState := cb.state
	cb.state = newState
	cb.successes = 0
	switch newState {
	case StateOpen:
		cb.nextAttempt = cb.now().Add(cb.config.Timeout)
	case StateClosed:
		cb.failures = 0
	}
	if oldState == newState || cb.onStateChange == nil {
		return nil
	}
	return &transition{from: oldState, to: newState, callback: cb.onStateChange}
}

func (cb *CircuitBreaker) notify(t *transition) {
	if t != nil {
		t.callback(cb.name, t.from, t.to)
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// CircuitBreakerStats holds statistics about a circuit breaker
type CircuitBreakerStats struct {
	Name        string    `json:"name"`
	State       string    `json:"state"`
	Failures    uint32    `json:"failures"`
	LastFailure time.Time `json:"last_failure,omitempty"`
	NextAttempt time.Time `json:"next_attempt,omitempty"`
}

// GetStats returns statistics about the circuit breaker
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return CircuitBreakerStats{
		Name:        cb.name,
		State:       cb.state.String(),
		Failures:    cb.failures,
		LastFailure: cb.lastFailure,
		NextAttempt: cb.nextAttempt,
	}
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	t := cb.changeState(StateClosed)
	cb.mutex.Unlock()
	cb.notify(t)
}

// CircuitBreakerManager keeps one breaker per source name
type CircuitBreakerManager struct {
	breakers map[string]*CircuitBreaker
	config   CircuitBreakerConfig
	onChange func(name string, from, to CircuitBreakerState)
	mutex    sync.RWMutex
}

// NewCircuitBreakerManager creates breakers on demand with a shared config
func NewCircuitBreakerManager(config CircuitBreakerConfig) *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers: make(map[string]*CircuitBreaker),
		config:   config,
	}
}

// OnStateChange sets the callback installed on every breaker created afterwards
func (cbm *CircuitBreakerManager) OnStateChange(callback func(name string, from, to CircuitBreakerState)) {
	cbm.mutex.Lock()
	defer cbm.mutex.Unlock()
	cbm.onChange = callback
}

// GetOrCreate gets an existing circuit breaker or creates a new one
func (cbm *CircuitBreakerManager) GetOrCreate(name string) *CircuitBreaker {
	cbm.mutex.RLock()
	if cb, exists := cbm.breakers[name]; exists {
		cbm.mutex.RUnlock()
		return cb
	}
	cbm.mutex.RUnlock()

	cbm.mutex.Lock()
	defer cbm.mutex.Unlock()

	if cb, exists := cbm.breakers[name]; exists {
		return cb
	}

	cb := NewCircuitBreaker(name, cbm.config)
	if cbm.onChange != nil {
		cb.onStateChange = cbm.onChange
	}
	cbm.breakers[name] = cb
	return cb
}

// GetStats returns statistics for all circuit breakers, sorted by name
func (cbm *CircuitBreakerManager) GetStats() []CircuitBreakerStats {
	cbm.mutex.RLock()
	defer cbm.mutex.RUnlock()

	stats := make([]CircuitBreakerStats, 0, len(cbm.breakers))
	for _, cb := range cbm.breakers {
		stats = append(stats, cb.GetStats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// GetOpenCircuits returns the sorted names of open breakers
func (cbm *CircuitBreakerManager) GetOpenCircuits() []string {
	cbm.mutex.RLock()
	defer cbm.mutex.RUnlock()

	var openCircuits []string
	for name, cb := range cbm.breakers {
		if cb.GetState() == StateOpen {
			openCircuits = append(openCircuits, name)
		}
	}
	sort.Strings(openCircuits)
	return openCircuits
}
