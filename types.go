package parallel

import "github.com/jwsr/go-parallel/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the parallel package for most use cases.

// Task is the unit of work (Closure)
type Task = core.Task

// State identifies where a delayed task is in its lifecycle
type State = core.State

// Handle is the externally-held reference to a delayed task
type Handle = core.Handle

// TaskExecutor is the interface timers dispatch into
type TaskExecutor = core.TaskExecutor

// ExceptionHandler receives panics recovered from user closures
type ExceptionHandler = core.ExceptionHandler

// ExceptionHandlerFunc adapts a plain function to ExceptionHandler
type ExceptionHandlerFunc = core.ExceptionHandlerFunc

// Metrics is the observability interface for pools and timers
type Metrics = core.Metrics

// Logger is the structured logging interface
type Logger = core.Logger

// PoolConfig configures a SimpleThreadPool
type PoolConfig = core.PoolConfig

// TimerConfig configures a Timer
type TimerConfig = core.TimerConfig

// State constants
const (
	StateWaiting   State = core.StateWaiting
	StateRunning   State = core.StateRunning
	StateDone      State = core.StateDone
	StateCancelled State = core.StateCancelled
	StateException State = core.StateException
)

// Convenience constructors for configs
var (
	DefaultPoolConfig  = core.DefaultPoolConfig
	DefaultTimerConfig = core.DefaultTimerConfig
)
