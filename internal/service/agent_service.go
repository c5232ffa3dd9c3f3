package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/markhet/agri-crm/internal/auth"
	"github.com/markhet/agri-crm/internal/config"
	"github.com/markhet/agri-crm/internal/domain"
	"github.com/markhet/agri-crm/internal/repository"
	"github.com/markhet/agri-crm/pkg/util"
)

// AgentService coordinates agent accounts and login flows.
type AgentService struct {
	agents     repository.AgentRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAgentService builds the service.
func NewAgentService(cfg config.AuthConfig, agents repository.AgentRepository) *AgentService {
	return &AgentService{
		agents:     agents,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLHours),
		bcryptCost: cfg.BcryptCost,
	}
}

// CreateAgent registers a new agent. Phone numbers are unique login
// identifiers.
func (s *AgentService) CreateAgent(ctx context.Context, name, password, phoneNumber string, role domain.AgentRole) (*domain.Agent, error) {
	if name == "" || password == "" || phoneNumber == "" {
		return nil, util.NewValidationError("Name, password, and phone number are required.", nil)
	}
	phoneNumber = domain.NormalizeNumber(phoneNumber)

	if _, err := s.agents.GetByPhone(ctx, phoneNumber); err == nil {
		return nil, util.NewConflict("An agent with this phone number already exists.", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, util.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, util.MapError(err)
	}
	if role == "" {
		role = domain.AgentRoleAgent
	}

	agent := &domain.Agent{
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		PhoneNumber:  phoneNumber,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, util.MapError(err)
	}
	return agent, nil
}

// Login authenticates an agent by phone number and issues a role-bearing
// token.
func (s *AgentService) Login(ctx context.Context, phoneNumber, password string) (*domain.Agent, string, time.Time, error) {
	if phoneNumber == "" || password == "" {
		return nil, "", time.Time{}, util.NewValidationError("phoneNumber and password are required.", nil)
	}
	agent, err := s.agents.GetByPhone(ctx, domain.NormalizeNumber(phoneNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, util.NewNotFound("agent", nil)
		}
		return nil, "", time.Time{}, util.MapError(err)
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, util.NewUnauthorized("Invalid credentials.")
	}
	token, exp, err := s.tokenMgr.GenerateToken(agent.ID, agent.Role)
	if err != nil {
		return nil, "", time.Time{}, util.MapError(err)
	}
	return agent, token, exp, nil
}

// ResetPassword replaces an agent's password hash.
func (s *AgentService) ResetPassword(ctx context.Context, agentID, password string) error {
	if agentID == "" || password == "" {
		return util.NewValidationError("userId and password are required.", nil)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return util.MapError(err)
	}
	if err := s.agents.UpdatePassword(ctx, agentID, hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("agent", nil)
		}
		return util.MapError(err)
	}
	return nil
}

// GetAgent loads one agent by id.
func (s *AgentService) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("agent", nil)
		}
		return nil, util.MapError(err)
	}
	return agent, nil
}

// ListAgents returns every agent. Admin-only at the route level.
func (s *AgentService) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	agents, err := s.agents.List(ctx)
	if err != nil {
		return nil, util.MapError(err)
	}
	return agents, nil
}

// VerifyToken decodes a token into the caller identity it carries.
func (s *AgentService) VerifyToken(tokenStr string) (domain.Caller, error) {
	claims, err := s.tokenMgr.ParseToken(tokenStr)
	if err != nil {
		return domain.Caller{}, util.NewUnauthorized("Invalid or expired token.")
	}
	return domain.Caller{ID: claims.AgentID, Role: claims.Role}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AgentService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
