package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/KevinKickass/OpenMachineAIO/internal/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Permission string

const (
	PermOperator   Permission = "operator"
	PermTechnician Permission = "technician"
	PermAdmin      Permission = "admin"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// userNamespace derives stable user IDs from configured usernames.
var userNamespace = uuid.MustParse("6f1c2f4e-1d2a-4b7e-9a55-3c0a8e1f7d21")

type user struct {
	id           uuid.UUID
	username     string
	passwordHash string
	role         string
}

type machineToken struct {
	name string
	hash string
	role string
}

// AuthService authenticates API clients against the accounts and machine
// tokens from the service config.
type AuthService struct {
	jwtHandler     *JWTHandler
	passwordHasher *PasswordHasher
	users          map[string]user
	machineTokens  []machineToken
	logger         *zap.Logger
}

func NewAuthService(cfg config.AuthConfig, logger *zap.Logger) *AuthService {
	if !cfg.IsProductionReady() {
		logger.Warn("JWT secret not set, using development secret",
			zap.String("env", cfg.JWTSecretEnv))
	}

	users := make(map[string]user, len(cfg.Users))
	for _, u := range cfg.Users {
		users[u.Username] = user{
			id:           uuid.NewSHA1(userNamespace, []byte(u.Username)),
			username:     u.Username,
			passwordHash: u.PasswordHash,
			role:         u.Role,
		}
	}

	tokens := make([]machineToken, 0, len(cfg.MachineTokens))
	for _, t := range cfg.MachineTokens {
		tokens = append(tokens, machineToken{name: t.Name, hash: t.TokenHash, role: t.Role})
	}

	return &AuthService{
		jwtHandler:     NewJWTHandler(cfg.GetJWTSecret(), cfg.AccessTokenTTL),
		passwordHasher: NewPasswordHasher(),
		users:          users,
		machineTokens:  tokens,
		logger:         logger,
	}
}

// LoginUser checks the password and returns a signed access token.
func (a *AuthService) LoginUser(username, password, ipAddress string) (string, time.Time, error) {
	u, ok := a.users[username]
	if !ok {
		a.logger.Warn("Login failed", zap.String("username", username), zap.String("ip", ipAddress), zap.String("reason", "user not found"))
		return "", time.Time{}, ErrInvalidCredentials
	}

	valid, err := a.passwordHasher.VerifyPassword(password, u.passwordHash)
	if err != nil || !valid {
		a.logger.Warn("Login failed", zap.String("username", username), zap.String("ip", ipAddress), zap.String("reason", "invalid password"), zap.Error(err))
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, expires, err := a.jwtHandler.GenerateAccessToken(u.id, u.username, u.role)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	a.logger.Info("Login succeeded", zap.String("username", username), zap.String("ip", ipAddress))
	return token, expires, nil
}

// ValidateMachineToken validates a machine token and returns permissions
func (a *AuthService) ValidateMachineToken(token, ipAddress string) ([]Permission, error) {
	if !validMachineTokenFormat(token) {
		return nil, fmt.Errorf("invalid token format")
	}

	hash := HashMachineToken(token)
	for _, t := range a.machineTokens {
		if subtle.ConstantTimeCompare([]byte(hash), []byte(t.hash)) == 1 {
			a.logger.Debug("Machine token accepted", zap.String("name", t.name), zap.String("ip", ipAddress))
			return roleToPermissions(t.role), nil
		}
	}

	a.logger.Warn("Machine token rejected", zap.String("ip", ipAddress))
	return nil, fmt.Errorf("invalid token")
}

// ValidateToken validates any token (JWT or Machine Token)
func (a *AuthService) ValidateToken(token, ipAddress string) ([]Permission, error) {
	if claims, err := a.jwtHandler.ValidateAccessToken(token); err == nil {
		return roleToPermissions(claims.Role), nil
	}

	return a.ValidateMachineToken(token, ipAddress)
}

func roleToPermissions(role string) []Permission {
	switch role {
	case "admin":
		return []Permission{PermOperator, PermTechnician, PermAdmin}
	case "technician":
		return []Permission{PermOperator, PermTechnician}
	default:
		return []Permission{PermOperator}
	}
}
