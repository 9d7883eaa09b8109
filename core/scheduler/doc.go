// Package scheduler plans a day of hourly dispatch from a supplied demand
// profile. Each hour is an independent solve; the plan sums the optimal
// hours and lists the ones that could not be dispatched.
package scheduler
