package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/repository"
	"marketplace/internal/validator"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash string, plain string) error
}

// bcryptハッシュ化
type BcryptPasswordHasher struct {
	cost int
}

func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{cost: cost}
}

func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *BcryptPasswordHasher) Compare(hash string, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// アクセストークン（HS256）の発行
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

func (i *TokenIssuer) Issue(user *model.User, now time.Time) (string, int, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"tv":   user.TokenVersion,
		"iat":  now.Unix(),
		"exp":  now.Add(i.ttl).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, int(i.ttl.Seconds()), nil
}

type UserDTO struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	// 省略時はbuyer
	Role string `json:"role" validate:"omitempty,oneof=buyer seller admin"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenOutput struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type AuthUsecase struct {
	users    repository.UserRepository
	hasher   PasswordHasher
	issuer   *TokenIssuer
	validate *validator.Validator
	clock    Clock
}

func NewAuthUsecase(
	users repository.UserRepository,
	hasher PasswordHasher,
	issuer *TokenIssuer,
	validate *validator.Validator,
	clock Clock,
) *AuthUsecase {
	return &AuthUsecase{
		users:    users,
		hasher:   hasher,
		issuer:   issuer,
		validate: validate,
		clock:    clock,
	}
}

func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (UserDTO, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := u.validate.Struct(in); err != nil {
		return UserDTO{}, invalidInput(err)
	}

	role := model.RoleBuyer
	if in.Role != "" {
		r, err := model.ParseRole(in.Role)
		if err != nil {
			return UserDTO{}, invalidArgument("invalid role")
		}
		role = r
	}

	//email重複チェック
	existing, err := u.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return UserDTO{}, storage(err)
	}
	if existing != nil {
		return UserDTO{}, conflict("email already used")
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return UserDTO{}, &Error{Kind: KindInvalidArgument, Message: "password cannot be hashed", Err: err}
	}

	user := &model.User{
		Email:        in.Email,
		PasswordHash: pwHash,
		Role:         role,
		IsActive:     true,
	}
	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return UserDTO{}, conflict("email already used")
		}
		return UserDTO{}, storage(err)
	}

	return toUserDTO(user), nil
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (TokenOutput, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := u.validate.Struct(in); err != nil {
		return TokenOutput{}, invalidInput(err)
	}

	badCredentials := &Error{Kind: KindUnauthenticated, Message: "invalid email or password"}

	user, err := u.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return TokenOutput{}, storage(err)
	}
	if user == nil {
		return TokenOutput{}, badCredentials
	}
	if err := u.hasher.Compare(user.PasswordHash, in.Password); err != nil {
		return TokenOutput{}, badCredentials
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return TokenOutput{}, forbidden("inactive user")
	}

	token, expiresIn, err := u.issuer.Issue(user, u.clock.Now())
	if err != nil {
		return TokenOutput{}, &Error{Kind: KindStorageUnavailable, Message: "token error", Err: err}
	}

	return TokenOutput{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   expiresIn,
	}, nil
}

func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		Email:    u.Email,
		Role:     string(u.Role),
		IsActive: u.IsActive,
	}
}
