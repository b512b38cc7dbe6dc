package service

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/ports"
)

// DeploymentService lists the deployments of an application, newest first.
type DeploymentService struct {
	sessions *SessionStore
	api      ports.DeploymentAPI
	timeout  time.Duration
}

func NewDeploymentService(sessions *SessionStore, api ports.DeploymentAPI, timeout time.Duration) *DeploymentService {
	return &DeploymentService{sessions: sessions, api: api, timeout: timeout}
}

func (s *DeploymentService) List(ctx context.Context, appID string) ([]core.Deployment, error) {
	token := s.sessions.Token()
	if token == "" {
		return nil, core.ErrNotAuthenticated
	}
	if appID == "" {
		return nil, fmt.Errorf("app id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	deployments, err := s.api.ListDeployments(ctx, token, appID)
	if err != nil {
		return nil, fmt.Errorf("list deployments of %s: %w", appID, err)
	}
	return core.SortByRecency(deployments), nil
}
