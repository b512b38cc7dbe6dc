package core

import (
	"slices"
	"time"
)

// Deployment is a single deployment of an application.
type Deployment struct {
	DeployID  string    `json:"deploy_id"`
	SID       string    `json:"sid"`
	Timestamp time.Time `json:"timestamp"`
}

// SortByRecency returns a copy of deployments ordered newest first.
// Deployments with equal timestamps keep their input order.
func SortByRecency(deployments []Deployment) []Deployment {
	sorted := slices.Clone(deployments)
	slices.SortStableFunc(sorted, func(a, b Deployment) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if sorted == nil {
		return []Deployment{}
	}
	return sorted
}
