/*
Package domain contains the core models shared by the tether components.

It defines the vocabulary of call coordination and offload: the fingerprint
derivation that identifies logically-equivalent calls, the task and message
shapes exchanged with a background compute unit, and the degradation taxonomy
used when offload gives way to a local fallback. This package is kept pure and
free of I/O so every other package can depend on it.

# Key Entities

  - Call: one logical invocation of a slow collaborator, fingerprintable.
  - Task / Envelope / Response: the offload unit and its wire shapes.
  - Reason: why a fallback path was taken (unit_unavailable, timeout, ...).
*/
package domain
