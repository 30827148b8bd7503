/*
Package ports defines the driven ports (interfaces) for the tether core.

These interfaces decouple the router and policy from concrete compute-unit
transports, allowing offload to target an in-process worker pool, a
subprocess, or a remote service without touching the coordination logic.

# Key Interfaces

  - Executor: a background compute unit reachable only by message passing.
  - Provider: lazy acquisition of an Executor for the fallback policy.
*/
package ports
