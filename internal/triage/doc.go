// Package triage collapses the wellbeing signals into the single alert shown
// to caregivers. It defines the Cache (latest value per signal, refreshed on
// change events and a poll), the Gate (at most one sentiment call at a time
// and at most one success per process), the ordered Rules and Resolve, and
// the Service that assembles Reports and fans out alert changes.
package triage
