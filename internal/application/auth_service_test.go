package application

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamnext/accounts-api/internal/domain/entity"
	repo "github.com/teamnext/accounts-api/internal/domain/repository"
	"github.com/teamnext/accounts-api/pkg/helpers"
)

// fakeRepo is an in-memory UserRepository with the same uniqueness
// semantics as the postgres implementation.
type fakeRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*entity.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*entity.User)}
}

func (f *fakeRepo) Create(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return repo.ErrDuplicate
		}
	}
	f.seq++
	u.ID = strconv.Itoa(f.seq)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeRepo) GetByUsernameOrEmail(_ context.Context, value string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == value || u.Email == value {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeRepo) Update(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[u.ID]
	if !ok {
		return repo.ErrNotFound
	}
	for id, other := range f.users {
		if id != u.ID && other.Email == u.Email {
			return repo.ErrDuplicate
		}
	}
	stored.Name = u.Name
	stored.Age = u.Age
	stored.Email = u.Email
	stored.Gender = u.Gender
	stored.PhoneNumber = u.PhoneNumber
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeRepo) UpdatePassword(_ context.Context, id, hashedPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.HashedPassword = hashedPassword
	u.UpdatedAt = time.Now()
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeRepo) List(_ context.Context) ([]entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

var _ repo.UserRepository = (*fakeRepo)(nil)

func newTestService() (*Service, *fakeRepo) {
	r := newFakeRepo()
	tokens := helpers.NewTokenManager("test-secret", 5*time.Minute, 24*time.Hour)
	return NewService(r, tokens, nil, nil, nil, ""), r
}

func aliceInput() RegisterInput {
	return RegisterInput{
		Username:    "alice",
		Email:       "a@x.com",
		Password:    "Secret123",
		Name:        "Alice",
		Age:         30,
		Gender:      "female",
		PhoneNumber: "1234567890",
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, r := newTestService()

	u, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "a@x.com", u.Email)
	assert.NotEmpty(t, u.ID)

	stored, err := r.GetByUsernameOrEmail(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123", stored.HashedPassword)
	assert.True(t, helpers.CompareHashAndPassword(stored.HashedPassword, "Secret123"))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, r := newTestService()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	in := aliceInput()
	in.Username = "bob"
	_, err = svc.Register(ctx, in)
	assert.ErrorIs(t, err, ErrConflict)

	users, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1, "store must contain exactly one user with that email")
}

func TestRegister_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	in := aliceInput()
	in.Email = "other@x.com"
	_, err = svc.Register(ctx, in)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "username already exists")
}

func TestRegister_UsernameMatchingAnotherEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	// A username that happens to equal someone else's email collides with
	// neither unique column, so registration goes through.
	in := aliceInput()
	in.Username = "a@x.com"
	in.Email = "second@x.com"
	u, err := svc.Register(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Username)
}

func TestRegister_PhonePolicy(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	in := aliceInput()
	in.PhoneNumber = "12345"
	_, err := svc.Register(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegister_PasswordPolicy(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	in := aliceInput()
	in.Password = "short"
	_, err := svc.Register(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	u, pair, err := svc.Login(ctx, "alice", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.True(t, pair.RefreshTokenExpiry.After(pair.AccessTokenExpiry))

	claims, err := svc.Tokens.VerifyToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username())

	claims, err = svc.Tokens.VerifyToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username())
}

func TestLogin_ByEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "a@x.com", "Secret123")
	assert.NoError(t, err)
}

func TestLogin_WrongPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "incorrect password")
}

func TestLogin_UnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, _, err := svc.Login(ctx, "nobody", "Secret123")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "incorrect username or email")
}

func TestLogin_RedisUnavailable(t *testing.T) {
	ctx := context.Background()
	r := newFakeRepo()
	tokens := helpers.NewTokenManager("test-secret", 5*time.Minute, 24*time.Hour)
	logger, _ := logtest.NewNullLogger()
	// nothing listens here; the session cache is best-effort
	rdb := helpers.NewRedisClient("127.0.0.1:1", "", 0)
	svc := NewService(r, tokens, rdb, logger, nil, "")

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	_, pair, err := svc.Login(ctx, "alice", "Secret123")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	svc.Logout(ctx, pair.AccessToken, "alice")
	_, err = svc.CurrentUser(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestForgetPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	err = svc.ForgetPassword(ctx, "alice", "NewSecret456", "NewSecret456")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice", "Secret123")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = svc.Login(ctx, "alice", "NewSecret456")
	assert.NoError(t, err)
}

func TestForgetPassword_Mismatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	err = svc.ForgetPassword(ctx, "alice", "NewSecret456", "SomethingElse")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestForgetPassword_UnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	err := svc.ForgetPassword(ctx, "nobody", "NewSecret456", "NewSecret456")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCurrentUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	_, pair, err := svc.Login(ctx, "alice", "Secret123")
	require.NoError(t, err)

	u, err := svc.CurrentUser(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}

func TestCurrentUser_InvalidToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.CurrentUser(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCurrentUser_DeletedSubject(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	u, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	_, pair, err := svc.Login(ctx, "alice", "Secret123")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, u.ID))

	_, err = svc.CurrentUser(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogout_RevokesToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	_, pair, err := svc.Login(ctx, "alice", "Secret123")
	require.NoError(t, err)

	_, err = svc.CurrentUser(ctx, pair.AccessToken)
	require.NoError(t, err)

	svc.Logout(ctx, pair.AccessToken, "alice")

	_, err = svc.CurrentUser(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// logout is idempotent
	svc.Logout(ctx, pair.AccessToken, "alice")
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	updated, err := svc.UpdateUser(ctx, created.ID, UpdateUserInput{
		Name:        "Alice B",
		Age:         31,
		Email:       "alice.b@x.com",
		Gender:      "female",
		PhoneNumber: "0987654321",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice B", updated.Name)
	assert.Equal(t, 31, updated.Age)
	assert.Equal(t, "alice.b@x.com", updated.Email)
	assert.Equal(t, "0987654321", updated.PhoneNumber)

	// password untouched by profile updates
	_, _, err = svc.Login(ctx, "alice", "Secret123")
	assert.NoError(t, err)
}

func TestUpdateUser_PhonePolicy(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	_, err = svc.UpdateUser(ctx, created.ID, UpdateUserInput{
		Name:        "Alice",
		Age:         30,
		Email:       "a@x.com",
		Gender:      "female",
		PhoneNumber: "12345",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateUser_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.UpdateUser(ctx, "999", UpdateUserInput{
		Name:        "Nobody",
		Age:         1,
		Email:       "n@x.com",
		Gender:      "other",
		PhoneNumber: "1234567890",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUser_EmailConflict(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	in := aliceInput()
	in.Username = "bob"
	in.Email = "b@x.com"
	bob, err := svc.Register(ctx, in)
	require.NoError(t, err)

	_, err = svc.UpdateUser(ctx, bob.ID, UpdateUserInput{
		Name:        "Bob",
		Age:         30,
		Email:       "a@x.com",
		Gender:      "male",
		PhoneNumber: "1234567890",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, created.ID))
	assert.ErrorIs(t, svc.DeleteUser(ctx, created.ID), ErrNotFound)

	_, err = svc.GetUser(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	_, err = svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	in := aliceInput()
	in.Username = "bob"
	in.Email = "b@x.com"
	_, err = svc.Register(ctx, in)
	require.NoError(t, err)

	users, err = svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestSearchUsers_WithoutES(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	hits, err := svc.SearchUsers(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
