// Package scope carries the authenticated team through a request context.
// Every registry and ledger call made on behalf of an HTTP request is scoped
// by the team found here.
package scope

import "context"

type teamKey struct{}

// WithTeam returns a copy of ctx that carries teamID.
func WithTeam(ctx context.Context, teamID string) context.Context {
	return context.WithValue(ctx, teamKey{}, teamID)
}

// TeamID returns the team stored by WithTeam, or "" when there is none.
func TeamID(ctx context.Context) string {
	team, _ := ctx.Value(teamKey{}).(string)
	return team
}
