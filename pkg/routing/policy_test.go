package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeutralPolicy(t *testing.T) {
	tests := []struct {
		name     string
		request  string
		expected string
	}{
		{"invoice goes to billing", "The invoice shows an extra fee on my account.", RouteBilling},
		{"refund goes to billing", "I want a refund for last month", RouteBilling},
		{"crash goes to tech", "The app crashes on startup", RouteTech},
		{"api goes to tech", "Your API returns 500s", RouteTech},
		{"pricing goes to sales", "What is your pricing for teams?", RouteSales},
		{"demo goes to sales", "Can we schedule a demo?", RouteSales},
		{"default is tech", "Hello there", RouteTech},
		{"case insensitive", "REFUND please", RouteBilling},
		{"billing beats tech on ties", "The billing api is down", RouteBilling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NeutralPolicy(tt.request))
		})
	}
}
