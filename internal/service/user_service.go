package service

import (
	"context"
	"errors"
	"fmt"

	"Vid_Community/internal/config"
	"Vid_Community/internal/model"
	"Vid_Community/internal/pkg"
	"Vid_Community/internal/repository/mysql"
	"Vid_Community/internal/repository/redis"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const msgUsernameTaken = "A user with that username already exists."

type UserService struct {
	repo   *mysql.UserRepository
	tokens *redis.TokenRepository
	issuer *pkg.TokenIssuer
	rotate bool
	log    zerolog.Logger
}

func NewUserService(repo *mysql.UserRepository, tokens *redis.TokenRepository, issuer *pkg.TokenIssuer, cfg *config.JWTConfig, log zerolog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
		issuer: issuer,
		rotate: cfg.RotateRefresh,
		log:    log.With().Str("component", "user_service").Logger(),
	}
}

type RegisterInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Register 只创建账号，不签发 token
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	exists, err := s.repo.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return nil, NewValidationError("username", msgUsernameTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:  in.Username,
		Password:  string(hash),
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		IsActive:  true,
	}
	if err = s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewValidationError("username", msgUsernameTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info().Uint64("user_id", user.ID).Msg("user registered")
	return user, nil
}

// ObtainToken 用户名密码换取 access/refresh
func (s *UserService) ObtainToken(ctx context.Context, username, password string) (*pkg.Pair, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return s.issuer.GeneratePair(user.ID)
}

// Refresh 开启轮换时签发新的 refresh，并把旧的加入黑名单
func (s *UserService) Refresh(ctx context.Context, refresh string) (*pkg.Pair, error) {
	claims, err := s.validRefresh(ctx, refresh)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrTokenInvalid
	}

	if !s.rotate {
		access, err := s.issuer.GenerateAccess(user.ID)
		if err != nil {
			return nil, err
		}
		return &pkg.Pair{AccessToken: access}, nil
	}

	// 先占用旧 refresh，并发请求中只有一个能拿到新的 pair
	if err = s.revoke(ctx, claims); err != nil {
		return nil, err
	}
	return s.issuer.GeneratePair(user.ID)
}

// Blacklist 注销：refresh 失效直至其自然过期
func (s *UserService) Blacklist(ctx context.Context, refresh string) error {
	claims, err := s.validRefresh(ctx, refresh)
	if err != nil {
		return err
	}
	return s.revoke(ctx, claims)
}

func (s *UserService) revoke(ctx context.Context, claims *pkg.Claims) error {
	ttl := s.issuer.Remaining(claims)
	if ttl <= 0 {
		return ErrTokenInvalid
	}
	err := s.tokens.Revoke(ctx, claims.ID, ttl)
	if errors.Is(err, redis.ErrTokenRevoked) {
		return ErrTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("blacklist refresh: %w", err)
	}
	return nil
}

func (s *UserService) validRefresh(ctx context.Context, refresh string) (*pkg.Claims, error) {
	claims, err := s.issuer.ParseRefresh(refresh)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Authenticate 校验 access 并加载用户，供鉴权中间件使用
func (s *UserService) Authenticate(ctx context.Context, access string) (*model.User, error) {
	claims, err := s.issuer.ParseAccess(access)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUserNotFound
	}
	return user, nil
}
