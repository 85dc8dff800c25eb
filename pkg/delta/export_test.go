package delta

// MaxViolations exposes the guard's configured threshold to external tests.
func MaxViolations(g *Guard) int { return g.maxViolations }
