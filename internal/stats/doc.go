// Package stats turns run records into outcome counts, success rates and
// trends. Cancelled runs count as successful in every rate computed here.
package stats
