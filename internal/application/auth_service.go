package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/teamnext/accounts-api/internal/domain/entity"
	repo "github.com/teamnext/accounts-api/internal/domain/repository"
	"github.com/teamnext/accounts-api/pkg/helpers"
)

// Service orchestrates registration, login, password reset, logout, and
// the account CRUD. Redis and Elasticsearch are optional collaborators;
// both are best-effort and never fail a request on their own.
type Service struct {
	Repo         repo.UserRepository
	Tokens       *helpers.TokenManager
	Redis        *redis.Client
	Logger       *logrus.Logger
	ES           *elasticsearch.Client
	ESUsersIndex string
}

func NewService(r repo.UserRepository, tokens *helpers.TokenManager, rdb *redis.Client, logger *logrus.Logger, es *elasticsearch.Client, esUsersIndex string) *Service {
	return &Service{
		Repo:         r,
		Tokens:       tokens,
		Redis:        rdb,
		Logger:       logger,
		ES:           es,
		ESUsersIndex: esUsersIndex,
	}
}

// TokenPair carries one access token and one refresh token, both with the
// username as subject.
type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

func sessionKey(username string) string {
	return "user:session:" + username
}

// sessionRecord is the JSON document cached in Redis per logged-in user.
type sessionRecord struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	LoggedIn  bool   `json:"logged_in"`
	CreatedAt string `json:"created_at"`
}

type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	Name        string
	Age         int
	Gender      string
	PhoneNumber string
}

type UpdateUserInput struct {
	Name        string
	Age         int
	Email       string
	Gender      string
	PhoneNumber string
}

func (s *Service) internal(op string, err error) error {
	if s.Logger != nil {
		s.Logger.WithError(err).WithField("op", op).Error("store failure")
	}
	return fmt.Errorf("%w: %s", ErrInternal, op)
}

// Register validates the payload, hashes the password and persists the
// user. The returned view never includes password material.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.PublicUser, error) {
	if len(in.PhoneNumber) != 10 {
		return nil, fmt.Errorf("%w: phone number should be exactly 10 digits", ErrInvalidInput)
	}
	if l := len(in.Password); l < 8 || l > 50 {
		return nil, fmt.Errorf("%w: password must be between 8 and 50 characters long", ErrInvalidInput)
	}

	// Each unique column is checked on its own so the conflict message
	// names the column that actually collides.
	if _, err := s.Repo.GetByUsername(ctx, in.Username); err == nil {
		return nil, fmt.Errorf("%w: username already exists", ErrConflict)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, s.internal("register lookup", err)
	}
	if _, err := s.Repo.GetByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("%w: email already exists", ErrConflict)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, s.internal("register lookup", err)
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, s.internal("hash password", err)
	}

	u := &entity.User{
		Username:       in.Username,
		Email:          in.Email,
		HashedPassword: hash,
		Name:           in.Name,
		Age:            in.Age,
		Gender:         in.Gender,
		PhoneNumber:    in.PhoneNumber,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		// Lost the race against a concurrent registration.
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("%w: username or email already exists", ErrConflict)
		}
		return nil, s.internal("create user", err)
	}

	_ = s.indexUser(ctx, u)

	pub := u.Public()
	return &pub, nil
}

// Login authenticates by username or email and issues an access/refresh
// pair. The distinct messages for unknown user and wrong password mirror
// the existing client-facing behavior.
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) (*entity.PublicUser, TokenPair, error) {
	u, err := s.Repo.GetByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, TokenPair{}, fmt.Errorf("%w: incorrect username or email", ErrUnauthorized)
		}
		return nil, TokenPair{}, s.internal("login lookup", err)
	}
	if !helpers.CompareHashAndPassword(u.HashedPassword, password) {
		return nil, TokenPair{}, fmt.Errorf("%w: incorrect password", ErrUnauthorized)
	}

	pair, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pub := u.Public()
	return &pub, pair, nil
}

// issueTokens generates the token pair and records a session in Redis.
func (s *Service) issueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	access, aexp, err := s.Tokens.GenerateAccessToken(u.Username)
	if err != nil {
		return TokenPair{}, s.internal("generate access token", err)
	}
	refresh, rexp, err := s.Tokens.GenerateRefreshToken(u.Username)
	if err != nil {
		return TokenPair{}, s.internal("generate refresh token", err)
	}

	if s.Redis != nil {
		key := sessionKey(u.Username)
		rec := sessionRecord{
			UserID:    u.ID,
			Username:  u.Username,
			Email:     u.Email,
			LoggedIn:  true,
			CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		}
		// The session expires together with the refresh token.
		if rErr := helpers.RedisSetJSON(ctx, s.Redis, key, rec, s.Tokens.RefreshTTL); rErr != nil && s.Logger != nil {
			s.Logger.WithError(rErr).WithField("key", key).Warn("session write failed")
		}
	}

	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// ForgetPassword replaces the password of the matching user after the
// confirmation check.
func (s *Service) ForgetPassword(ctx context.Context, usernameOrEmail, newPassword, confirmPassword string) error {
	u, err := s.Repo.GetByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return s.internal("password lookup", err)
	}
	if newPassword != confirmPassword {
		return fmt.Errorf("%w: new password and confirm password should be same", ErrInvalidInput)
	}
	if l := len(newPassword); l < 8 || l > 50 {
		return fmt.Errorf("%w: password must be between 8 and 50 characters long", ErrInvalidInput)
	}

	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return s.internal("hash password", err)
	}
	if err := s.Repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return s.internal("update password", err)
	}
	return nil
}

// Logout revokes the caller's own token and drops the session record.
// Re-revoking is a no-op, so logout is idempotent.
func (s *Service) Logout(ctx context.Context, token, username string) {
	s.Tokens.Revoke(token)
	if s.Redis != nil && username != "" {
		if err := helpers.RedisDel(ctx, s.Redis, sessionKey(username)); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("username", username).Warn("session delete failed")
		}
	}
}

// CurrentUser resolves a bearer token to the stored user record. Any
// token the TokenManager rejects, and any subject that no longer exists,
// yields ErrUnauthorized.
func (s *Service) CurrentUser(ctx context.Context, token string) (*entity.User, error) {
	claims, err := s.Tokens.VerifyToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: could not validate user", ErrUnauthorized)
	}
	u, err := s.Repo.GetByUsernameOrEmail(ctx, claims.Username())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: could not validate user", ErrUnauthorized)
		}
		return nil, s.internal("current user lookup", err)
	}
	return u, nil
}

// GetUser fetches one record by id.
func (s *Service) GetUser(ctx context.Context, id string) (*entity.PublicUser, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, s.internal("get user", err)
	}
	pub := u.Public()
	return &pub, nil
}

// UpdateUser replaces the mutable attributes of the record. The phone
// policy applies here exactly as it does on registration.
func (s *Service) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*entity.PublicUser, error) {
	if len(in.PhoneNumber) != 10 {
		return nil, fmt.Errorf("%w: phone number should be exactly 10 digits", ErrInvalidInput)
	}

	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, s.internal("update lookup", err)
	}

	u.Name = in.Name
	u.Age = in.Age
	u.Email = in.Email
	u.Gender = in.Gender
	u.PhoneNumber = in.PhoneNumber

	if err := s.Repo.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			return nil, fmt.Errorf("%w: email already exists", ErrConflict)
		case errors.Is(err, repo.ErrNotFound):
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, s.internal("update user", err)
	}

	_ = s.indexUser(ctx, u)

	pub := u.Public()
	return &pub, nil
}

// DeleteUser removes the record and its search document.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return s.internal("delete user", err)
	}
	s.deleteUserIndex(ctx, id)
	return nil
}

// ListUsers returns a read-only snapshot of all users.
func (s *Service) ListUsers(ctx context.Context) ([]entity.PublicUser, error) {
	users, err := s.Repo.List(ctx)
	if err != nil {
		return nil, s.internal("list users", err)
	}
	out := make([]entity.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out, nil
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":           u.ID,
		"username":     u.Username,
		"email":        u.Email,
		"name":         u.Name,
		"phone_number": u.PhoneNumber,
		"created_at":   u.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":   u.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
	return nil
}

func (s *Service) deleteUserIndex(ctx context.Context, id string) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESUsersIndex, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", id).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}

// SearchUsers performs a simple multi_match search on username, email and name.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^2", "email^2", "name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESUsersIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
