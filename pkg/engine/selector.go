package engine

import (
	"github.com/apimimic/mimicd/pkg/endpoint"
	"github.com/apimimic/mimicd/pkg/request"
)

// selectRule walks the endpoint's rules in declaration order and returns the
// first whose conditions all hold, falling back to the endpoint default.
// Rule order is the only priority mechanism: two rules that both match
// always resolve to the earlier one.
func selectRule(ep *endpoint.Endpoint, ctx *request.Context) *endpoint.Rule {
	for _, rule := range ep.Rules {
		if rule.Matches(ctx) {
			return rule
		}
	}
	return ep.Default
}
