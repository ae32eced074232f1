package routing

import "strings"

// NeutralPolicy is the lightweight keyword rule set used in front of, or
// instead of, the LLM. It always returns a valid route.
func NeutralPolicy(text string) string {
	t := strings.ToLower(text)
	for _, w := range []string{"invoice", "charge", "refund", "billing"} {
		if strings.Contains(t, w) {
			return RouteBilling
		}
	}
	for _, w := range []string{"error", "bug", "doesn't work", "crash", "api"} {
		if strings.Contains(t, w) {
			return RouteTech
		}
	}
	for _, w := range []string{"pricing", "quote", "demo", "trial"} {
		if strings.Contains(t, w) {
			return RouteSales
		}
	}
	return RouteTech // default
}
