package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civicreport-be/models"
	"civicreport-be/repository"
	authUtils "civicreport-be/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var errBadCredentials = fmt.Errorf("%w: invalid email or password", models.ErrUnauthorized)

type AuthService struct {
	users          repository.UserInterface
	secret         string
	ttl            time.Duration
	allowSelfRoles bool
	log            *zap.SugaredLogger
	now            func() time.Time
}

// NewAuthService builds the identity service. When allowSelfRoles is false
// every registration is a Citizen regardless of the requested role.
func NewAuthService(users repository.UserInterface, secret string, ttl time.Duration, allowSelfRoles bool, log *zap.SugaredLogger) *AuthService {
	return &AuthService{
		users:          users,
		secret:         secret,
		ttl:            ttl,
		allowSelfRoles: allowSelfRoles,
		log:            log,
		now:            time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}

	role := models.Citizen
	if s.allowSelfRoles && in.Role != "" {
		role = in.Role
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      in.Name,
		Username:  in.Username,
		Email:     in.Email,
		Password:  in.Password,
		Phone:     in.Phone,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.HashPassword(); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.InsertUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infow("user registered", "user_id", user.ID.Hex(), "role", user.Role)
	return user, nil
}

// Login checks credentials and issues a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", nil, errBadCredentials
		}
		return "", nil, err
	}
	if !user.ComparePassword(password) {
		s.log.Infow("login rejected", "user_id", user.ID.Hex())
		return "", nil, errBadCredentials
	}

	token, err := authUtils.GenerateToken(s.secret, s.ttl, authUtils.Claims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   string(user.Role),
	})
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Authenticate resolves a bearer token into the caller it was issued to.
func (s *AuthService) Authenticate(token string) (*models.Caller, error) {
	claims, err := authUtils.ParseToken(s.secret, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	uid, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token subject", models.ErrUnauthorized)
	}
	role := models.Role(claims.Role)
	if !role.Valid() {
		role = models.Citizen
	}
	return &models.Caller{UserID: uid, Role: role}, nil
}

func (s *AuthService) Profile(ctx context.Context, caller *models.Caller) (*models.User, error) {
	if caller == nil {
		return nil, fmt.Errorf("%w: authentication required", models.ErrUnauthorized)
	}
	return s.users.FindUser(ctx, caller.UserID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, caller *models.Caller, patch models.ProfilePatch) (*models.User, error) {
	user, err := s.Profile(ctx, caller)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateStruct(patch); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Username != nil {
		user.Username = *patch.Username
	}
	if patch.Phone != nil {
		user.Phone = *patch.Phone
	}
	if patch.Location != nil {
		user.Location = *patch.Location
	}
	if patch.Bio != nil {
		user.Bio = *patch.Bio
	}
	user.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)

	if err := s.users.ReplaceUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, caller *models.Caller, current, next string) error {
	user, err := s.Profile(ctx, caller)
	if err != nil {
		return err
	}
	if !user.ComparePassword(current) {
		return fmt.Errorf("%w: current password is incorrect", models.ErrValidation)
	}
	if len(next) < 6 {
		return fmt.Errorf("%w: new password must be at least 6 characters", models.ErrValidation)
	}

	user.Password = next
	if err := user.HashPassword(); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)
	if err := s.users.ReplaceUser(ctx, user); err != nil {
		return err
	}
	s.log.Infow("password changed", "user_id", user.ID.Hex())
	return nil
}

func (s *AuthService) UpdateImage(ctx context.Context, caller *models.Caller, imageURL string) (*models.User, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, fmt.Errorf("%w: imageUrl is required", models.ErrValidation)
	}
	user, err := s.Profile(ctx, caller)
	if err != nil {
		return nil, err
	}
	user.ImageURL = imageURL
	user.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)
	if err := s.users.ReplaceUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
