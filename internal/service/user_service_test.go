package service

import (
	"context"
	"testing"

	"nexus-chat-go/internal/model"
	"nexus-chat-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	byUsername map[string]*model.User
	byEmail    map[string]*model.User
	created    []*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byUsername: map[string]*model.User{},
		byEmail:    map[string]*model.User{},
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	f.byUsername[user.Username] = user
	f.byEmail[user.Email] = user
	f.created = append(f.created, user)
	return nil
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if u, ok := f.byUsername[username]; ok {
		return u, nil
	}
	return nil, repository.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, repository.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByID(ctx context.Context, userID string) (*model.User, error) {
	for _, u := range f.created {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, nil)

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice", "other@example.com", "secret123")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.Len(t, repo.created, 1)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, nil)

	_, err := svc.Register(context.Background(), "alice", "shared@example.com", "secret123")
	require.NoError(t, err)

	// 不同用户名、相同邮箱也必须被拒绝
	_, err = svc.Register(context.Background(), "bob", "shared@example.com", "secret123")
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Len(t, repo.created, 1)
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, nil)

	user, err := svc.Register(context.Background(), "alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "secret123", user.Password)
}
