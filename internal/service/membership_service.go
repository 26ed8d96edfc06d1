package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/spec-kit/user-management-service/internal/config"
)

// MembershipService checks whether a GitHub access token belongs to a
// member of the configured organization. The lookup runs synchronously on
// the caller's goroutine with a context deadline; no shared event loop
// exists to block.
type MembershipService struct {
	cfg    config.OAuthConfig
	logger *zap.Logger
}

// NewMembershipService creates the service.
func NewMembershipService(cfg config.OAuthConfig, logger *zap.Logger) *MembershipService {
	return &MembershipService{cfg: cfg, logger: logger}
}

type githubOrg struct {
	Login string `json:"login"`
}

// CheckOrganization lists the token owner's organizations and reports
// whether the configured organization is among them. An empty configured
// organization always reports false.
func (m *MembershipService) CheckOrganization(ctx context.Context, accessToken string) (bool, error) {
	if m.cfg.Organization == "" {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout())
	defer cancel()

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	client := oauth2.NewClient(ctx, source)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.APIBaseURL+"/user/orgs", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("organization lookup failed: status %d", resp.StatusCode)
	}

	var orgs []githubOrg
	if err := json.NewDecoder(resp.Body).Decode(&orgs); err != nil {
		return false, err
	}

	for _, org := range orgs {
		if org.Login == m.cfg.Organization {
			return true, nil
		}
	}

	m.logger.Debug("token owner not in organization", zap.String("organization", m.cfg.Organization))
	return false, nil
}
