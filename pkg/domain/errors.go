package domain

import "errors"

// ErrEmptyTaskID is returned when a task is dispatched without an id.
var ErrEmptyTaskID = errors.New("task id is empty")

// ErrDuplicateTask is returned when a task id is already pending on the router.
var ErrDuplicateTask = errors.New("task id already pending")

// ErrTaskTimeout is returned when a compute unit does not answer within the task budget.
var ErrTaskTimeout = errors.New("task timed out")

// ErrExecutorUnavailable is returned when no usable compute unit could be acquired.
var ErrExecutorUnavailable = errors.New("compute unit unavailable")

// ErrExecutorClosed is returned by executors after Dispose.
var ErrExecutorClosed = errors.New("executor closed")

// ErrNoData is returned when a compute unit reports success without a result.
var ErrNoData = errors.New("offload returned no data")
