package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	types "github.com/yungbote/smartboard-backend/internal/domain"
	"github.com/yungbote/smartboard-backend/internal/data/repos"
	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
	"github.com/yungbote/smartboard-backend/internal/platform/ctxutil"
	"github.com/yungbote/smartboard-backend/internal/platform/dbctx"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

const (
	DefaultMockToken  = "mock-google-token"
	DefaultSessionTTL = 7 * 24 * time.Hour
)

// mockIdentity is the development identity behind the mock token.
var mockIdentity = ExternalIdentity{
	Provider:      "mock",
	Sub:           "mock-123",
	Email:         "guest@example.com",
	EmailVerified: true,
	Name:          "Guest Student",
	Picture:       "https://picsum.photos/seed/guest/100/100",
}

type AuthConfig struct {
	JWTSecretKey   string
	SessionTTL     time.Duration
	AllowMockToken bool
	MockToken      string
}

type AuthService interface {
	// Exchange verifies an identity-provider token and returns a session token
	// for the matching user, creating the user on first sight.
	Exchange(dbc dbctx.Context, idToken string) (string, *types.User, error)
	// SetContextFromToken validates a session token and attaches the caller to ctx.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueSessionToken(user *types.User) (string, error)
	GetSessionTTL() time.Duration
}

type SessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type authService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
	verifier OIDCVerifier
	avatars  AvatarService
	cfg      AuthConfig
	now      func() time.Time
}

func NewAuthService(
	log *logger.Logger,
	userRepo repos.UserRepo,
	verifier OIDCVerifier,
	avatars AvatarService,
	cfg AuthConfig,
) (AuthService, error) {
	if strings.TrimSpace(cfg.JWTSecretKey) == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if strings.TrimSpace(cfg.MockToken) == "" {
		cfg.MockToken = DefaultMockToken
	}
	return &authService{
		log:      log.With("service", "AuthService"),
		userRepo: userRepo,
		verifier: verifier,
		avatars:  avatars,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

func (as *authService) Exchange(dbc dbctx.Context, idToken string) (string, *types.User, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return "", nil, apierr.Validation(fmt.Errorf("idToken is required"))
	}

	ident, err := as.verify(dbc.Ctx, idToken)
	if err != nil {
		as.log.Warn("Identity token rejected", "error", err)
		return "", nil, apierr.InvalidCredential(fmt.Errorf("identity token rejected"))
	}

	candidate := &types.User{
		Name:         ident.Name,
		Email:        strings.ToLower(strings.TrimSpace(ident.Email)),
		GoogleSub:    ident.Sub,
		ProfileImage: ident.Picture,
	}
	if as.avatars != nil {
		candidate.AvatarColor = as.avatars.ColorFor(ident.Sub)
	}
	user, created, err := as.userRepo.FindOrCreateByGoogleSub(dbc, candidate)
	if err != nil {
		return "", nil, apierr.Internal(fmt.Errorf("find or create user: %w", err))
	}
	if created {
		as.log.Info("User created from identity exchange", "user_id", user.ID.String(), "provider", ident.Provider)
	}

	token, err := as.IssueSessionToken(user)
	if err != nil {
		return "", nil, apierr.Internal(err)
	}
	return token, user, nil
}

func (as *authService) verify(ctx context.Context, idToken string) (*ExternalIdentity, error) {
	if as.cfg.AllowMockToken && constantTimeEq(idToken, as.cfg.MockToken) {
		ident := mockIdentity
		return &ident, nil
	}
	if as.verifier == nil {
		return nil, fmt.Errorf("no identity verifier configured")
	}
	return as.verifier.VerifyGoogleIDToken(ctx, idToken)
}

func (as *authService) IssueSessionToken(user *types.User) (string, error) {
	if user == nil || user.ID == uuid.Nil {
		return "", fmt.Errorf("user required")
	}
	now := as.now()
	claims := SessionClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.cfg.SessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.cfg.JWTSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ctx, apierr.Unauthenticated(nil)
	}
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			return []byte(as.cfg.JWTSecretKey), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(as.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ctx, apierr.InvalidCredential(fmt.Errorf("session token expired"))
		}
		return ctx, apierr.InvalidCredential(fmt.Errorf("failed to parse token: %w", err))
	}
	if !parsed.Valid {
		return ctx, apierr.InvalidCredential(nil)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apierr.InvalidCredential(fmt.Errorf("invalid user id in token"))
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
	}), nil
}

func (as *authService) GetSessionTTL() time.Duration {
	return as.cfg.SessionTTL
}
