/*
Package offload correlates task submissions to a background compute unit with
the response messages it eventually emits.

Every dispatched task is tracked by its caller-assigned id and armed with a
timer; a task settles exactly once, either by a matching response, by its
timeout, or by bulk cancellation. Late or unknown responses are ignored.
*/
package offload
