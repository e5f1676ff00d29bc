package negotiation

import "math"

// Decision kinds produced by Evaluate.
const (
	DecideAccept     = "auto_accept"
	DecideNegotiate  = "negotiate"
	DecideRejectHigh = "reject_too_high"
	DecideNoPrice    = "no_price_found"
)

// Decision is the evaluator's verdict on one provider quote. Counter is set
// for negotiate and reject_too_high and is always a whole currency amount,
// never above the quote and never above the session's MaxPrice.
type Decision struct {
	Kind    string
	Offer   float64
	Counter float64
}

// Evaluate applies the threshold policy to a parsed quote. Pure: the caller
// owns all state changes.
//
// A quote at or under MinAcceptable is taken as-is. A quote within budget is
// countered at the midpoint between the quote and MinAcceptable. A quote over
// budget is countered at 85% of the quote, capped at MaxPrice.
func Evaluate(maxPrice, minAcceptable, offer float64) Decision {
	switch {
	case offer <= minAcceptable:
		return Decision{Kind: DecideAccept, Offer: offer}
	case offer <= maxPrice:
		counter := math.Round((offer + minAcceptable) / 2)
		if counter > offer {
			counter = offer
		}
		return Decision{Kind: DecideNegotiate, Offer: offer, Counter: counter}
	default:
		counter := math.Round(offer * 0.85)
		if counter > maxPrice {
			counter = maxPrice
		}
		return Decision{Kind: DecideRejectHigh, Offer: offer, Counter: counter}
	}
}

// EvaluateMessage parses a quote out of free text and evaluates it. Text with
// no extractable price yields a no_price_found decision and must not mutate
// any price field.
func EvaluateMessage(maxPrice, minAcceptable float64, text string) Decision {
	offer, ok := ParsePrice(text)
	if !ok {
		return Decision{Kind: DecideNoPrice}
	}
	return Evaluate(maxPrice, minAcceptable, offer)
}
