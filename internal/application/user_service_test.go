package application

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eagleapps/user-service/internal/domain/entity"
	repo "github.com/eagleapps/user-service/internal/domain/repository"
	"github.com/eagleapps/user-service/pkg/helpers"
)

// fakeUserRepository is an in-memory UserRepository with the same contract
// as the postgres implementation: generated prefixed ids, storage-assigned
// role ids, full-replace child semantics, ErrNotFound on missing ids.
type fakeUserRepository struct {
	mu         sync.Mutex
	seq        int64
	nextRoleID int64
	order      []string
	users      map[string]*entity.User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[string]*entity.User)}
}

func cloneUser(u *entity.User) *entity.User {
	out := *u
	out.Roles = append([]entity.Role{}, u.Roles...)
	out.Addresses = make(map[string]string, len(u.Addresses))
	for k, v := range u.Addresses {
		out.Addresses[k] = v
	}
	return &out
}

func (f *fakeUserRepository) Create(_ context.Context, u *entity.User) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := helpers.FormatID("EGL", f.seq)
	stored := cloneUser(u)
	stored.ID = id
	stored.CreatedAt = time.Now().UTC()
	for i := range stored.Roles {
		f.nextRoleID++
		stored.Roles[i].ID = f.nextRoleID
	}
	f.users[id] = stored
	f.order = append(f.order, id)
	return id, nil
}

func (f *fakeUserRepository) GetAll(_ context.Context) ([]*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.User, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, cloneUser(f.users[id]))
	}
	return out, nil
}

func (f *fakeUserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneUser(u), nil
}

func (f *fakeUserRepository) GetByUsername(_ context.Context, username string) (*entity.CredentialView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return &entity.CredentialView{
				ID:                    u.ID,
				Username:              u.Username,
				Password:              u.Password,
				Active:                u.Active,
				AccountNonExpired:     u.AccountNonExpired,
				AccountNonLocked:      u.AccountNonLocked,
				CredentialsNonExpired: u.CredentialsNonExpired,
				Roles:                 append([]entity.Role{}, u.Roles...),
			}, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeUserRepository) Update(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[u.ID]
	if !ok {
		return repo.ErrNotFound
	}
	stored.Fullname = u.Fullname
	stored.DOB = u.DOB
	stored.Active = u.Active
	stored.AccountNonExpired = u.AccountNonExpired
	stored.AccountNonLocked = u.AccountNonLocked
	stored.CredentialsNonExpired = u.CredentialsNonExpired
	stored.ProfilePic = u.ProfilePic
	stored.Roles = nil
	for _, r := range u.Roles {
		f.nextRoleID++
		stored.Roles = append(stored.Roles, entity.Role{ID: f.nextRoleID, Name: r.Name})
	}
	stored.Addresses = make(map[string]string, len(u.Addresses))
	for k, v := range u.Addresses {
		stored.Addresses[k] = v
	}
	return nil
}

func (f *fakeUserRepository) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.users, id)
	for i, oid := range f.order {
		if oid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeUserRepository) UpdatePassword(_ context.Context, username, hash string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			u.Password = hash
			return u.ID, nil
		}
	}
	return "", repo.ErrNotFound
}

func (f *fakeUserRepository) ExistsByEmailOrMobile(_ context.Context, email string, mobile int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email || u.Mobile == mobile {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepository) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

var _ repo.UserRepository = (*fakeUserRepository)(nil)

type serviceFixtures struct {
	service *Service
	repo    *fakeUserRepository
}

func createTestService(t *testing.T) serviceFixtures {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	r := newFakeUserRepository()
	return serviceFixtures{
		service: NewService(r, nil, nil, logger, nil, "", 0),
		repo:    r,
	}
}

func samplePayload(n int) *entity.User {
	return &entity.User{
		Username:              fmt.Sprintf("user%03d", n),
		Fullname:              fmt.Sprintf("User %03d", n),
		DOB:                   "1991-02-03",
		Email:                 fmt.Sprintf("user%03d@example.com", n),
		Password:              "$2a$10$fakehash",
		Mobile:                int64(6280000000000 + n),
		Active:                true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		Roles:                 []entity.Role{{Name: "ROLE_USER"}, {Name: "ROLE_REVIEWER"}},
		Addresses: map[string]string{
			"home":   "1 Main St",
			"office": "2 Work Rd",
		},
	}
}

func roleNames(roles []entity.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.Name)
	}
	return out
}

func TestService_Create_ReadsBackExactAggregate(t *testing.T) {
	fx := createTestService(t)
	ctx := context.Background()

	created, err := fx.service.Create(ctx, samplePayload(1))
	require.NoError(t, err)
	assert.Equal(t, "EGL00001", created.ID)

	got, err := fx.service.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ROLE_USER", "ROLE_REVIEWER"}, roleNames(got.Roles))
	assert.Equal(t, map[string]string{"home": "1 Main St", "office": "2 Work Rd"}, got.Addresses)
	assert.Equal(t, "user001", got.Username)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestService_Create_DuplicateEmailRejectedWithoutWrites(t *testing.T) {
	fx := createTestService(t)
	ctx := context.Background()

	_, err := fx.service.Create(ctx, samplePayload(1))
	require.NoError(t, err)
	before := fx.repo.count()

	dup := samplePayload(2)
	dup.Email = "user001@example.com"
	_, err = fx.service.Create(ctx, dup)
	require.ErrorIs(t, err, ErrDuplicateUser)
	assert.Equal(t, before, fx.repo.count())
}

func TestService_Create_DuplicateMobileRejected(t *testing.T) {
	fx := createTestService(t)
	ctx := context.Background()

	_, err := fx.service.Create(ctx, samplePayload(1))
	require.NoError(t, err)

	dup := samplePayload(2)
	dup.Mobile = samplePayload(1).Mobile
	_, err = fx.service.Create(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestService_Create_ConcurrentIdsDistinctAndContiguous(t *testing.T) {
	fx := createTestService(t)
	ctx := context.Background()

	const n = 25
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := fx.service.Create(ctx, samplePayload(i))
			if err == nil {
				ids <- created.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{})
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
	require.Len(t, seen, n)
	for i := 1; i <= n; i++ {
		_, ok := seen[helpers.FormatID("EGL", int64(i))]
		assert.True(t, ok, "missing id for counter value %d", i)
	}
}

func TestService_Update_FullyReplacesChildren(t *testing.T) {
	fx := createTestService(t)
	ctx := context.Background()

	created, err := fx.service.Create(ctx, samplePayload(1))
	require.NoError(t, err)

	updated, err := fx.service.Update(ctx, &entity.User{
		ID:                    created.ID,
		Fullname:              "Renamed User",
		DOB:                   "1991-02-03",
		Active:                false,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		Roles:                 []entity.Role{{Name: "ROLE_USER"}},
		Addresses:             map[string]string{"home": "9 New St"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ROLE_USER"}, roleNames(updated.Roles))
	assert.Equal(t, map[string]string{"home": "9 New St"}, updated.Addresses)
	assert.False(t, updated.Active)

	got, err := fx.service.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ROLE_USER"}, roleNames(got.Roles))
	// Email and mobile are fixed at creation.
	assert.Equal(t, created.Email, got.Email)
	assert.Equal(t, created.Mobile, got.Mobile)
}

func TestService_Update_MissingUser(t *testing.T) {
	fx := createTestService(t)
	_, err := fx.service.Update(context.Background(), &entity.User{ID: "EGL99999", Fullname: "Ghost"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_Delete_RemovesAggregate(t *testing.T) {
	fx := createTestService(t)
	ctx := context.Background()

	created, err := fx.service.Create(ctx, samplePayload(1))
	require.NoError(t, err)

	require.NoError(t, fx.service.Delete(ctx, created.ID))

	_, err = fx.service.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, fx.service.Delete(ctx, created.ID), ErrUserNotFound)
}

func TestService_GetByUsername_CredentialView(t *testing.T) {
	fx := createTestService(t)
	ctx := context.Background()

	created, err := fx.service.Create(ctx, samplePayload(1))
	require.NoError(t, err)

	view, err := fx.service.GetByUsername(ctx, "user001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, view.ID)
	assert.Equal(t, "$2a$10$fakehash", view.Password)
	assert.ElementsMatch(t, []string{"ROLE_USER", "ROLE_REVIEWER"}, roleNames(view.Roles))

	_, err = fx.service.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_UpdatePassword(t *testing.T) {
	fx := createTestService(t)
	ctx := context.Background()

	_, err := fx.service.Create(ctx, samplePayload(1))
	require.NoError(t, err)

	require.NoError(t, fx.service.UpdatePassword(ctx, "user001", "$2a$10$newhash"))

	view, err := fx.service.GetByUsername(ctx, "user001")
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$newhash", view.Password)

	assert.ErrorIs(t, fx.service.UpdatePassword(ctx, "nobody", "x"), ErrUserNotFound)
}

func TestService_GetAll_FirstSeenOrder(t *testing.T) {
	fx := createTestService(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := fx.service.Create(ctx, samplePayload(i))
		require.NoError(t, err)
	}

	users, err := fx.service.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "EGL00001", users[0].ID)
	assert.Equal(t, "EGL00003", users[2].ID)
}
