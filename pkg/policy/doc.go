/*
Package policy wraps the offload router with a guaranteed local fallback.

Offload is an optimization, never a dependency: when the compute unit is
unavailable, too slow, or erroring, the caller-supplied fallback computes the
same result locally. Every degradation is classified and counted per logical
domain, so a monitoring consumer can see how often, and why, offload gave way.
*/
package policy
