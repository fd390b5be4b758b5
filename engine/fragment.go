/*
fragment.go - Splitting an allocation into invoice-sized chunks

PURPOSE:
  Turns one group's allocated quantity into a sequence of invoice-sized
  chunks. This is a randomized bin-covering heuristic, not an exact
  packing: it trades utilization for the size variety real invoicing
  shows.

TIER POLICY:
  While at least a minimum invoice remains, draw a size tier:
    30%  the maximum invoice size
    50%  the midpoint of [min, max]
    20%  the minimum invoice size
  The candidate is bounded by the remaining quantity, rounded down to the
  multiple granularity, and re-rounded if clamping was needed. A candidate
  that rounds to zero ends the loop (guards small remainders).

REMAINDER:
  Whatever is left after the loop (always < min) becomes a trailing chunk
  tagged Remainder, so the synthesizer can apply a separate policy instead
  of silently emitting a sub-minimum invoice. A cut is never allowed to
  strand a sub-minimum tail when the whole remainder would have fit one
  invoice - 450 eggs is one 450-egg invoice, not 300 + a 150 remainder.

INVARIANT:
  The chunk quantities always sum to the allocation exactly. Integer
  arithmetic throughout, no loss.
*/
package engine

import "math/rand"

// Fragment splits qty into invoice chunks for the given group.
// Every chunk except a trailing remainder satisfies
// min <= quantity <= max and quantity % multiple == 0.
func Fragment(group GroupID, qty int, cfg Config, rng *rand.Rand) []InvoiceChunk {
	var chunks []InvoiceChunk
	remaining := qty
	if remaining <= 0 {
		return chunks
	}

	min, max, multiple := cfg.MinInvoiceQty, cfg.MaxInvoiceQty, cfg.Multiple

	for remaining >= min {
		var candidate int
		switch r := rng.Float64(); {
		case r < 0.3:
			candidate = max
		case r < 0.8:
			candidate = (min + max) / 2
		default:
			candidate = min
		}
		if candidate > remaining {
			candidate = remaining
		}
		candidate = (candidate / multiple) * multiple
		if candidate > remaining {
			candidate = (remaining / multiple) * multiple
		}
		if candidate == 0 {
			break
		}
		// A cut that strands a sub-minimum tail is unnecessary when the
		// whole remainder fits a single invoice: take it whole instead.
		if tail := remaining - candidate; tail > 0 && tail < min &&
			remaining <= max && remaining%multiple == 0 {
			candidate = remaining
		}
		chunks = append(chunks, InvoiceChunk{Group: group, Quantity: candidate})
		remaining -= candidate
	}

	if remaining > 0 {
		chunks = append(chunks, InvoiceChunk{
			Group:     group,
			Quantity:  remaining,
			Remainder: remaining < min,
		})
	}
	return chunks
}
