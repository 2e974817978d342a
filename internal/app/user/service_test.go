package user_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/diillson/calorie-api-go/internal/app/record"
	"github.com/diillson/calorie-api-go/internal/app/user"
	"github.com/diillson/calorie-api-go/internal/domain/model"
	"github.com/diillson/calorie-api-go/internal/domain/repository"
	"github.com/diillson/calorie-api-go/internal/mocks"
	"github.com/diillson/calorie-api-go/internal/testutils"
	apierrors "github.com/diillson/calorie-api-go/pkg/errors"
	"github.com/diillson/calorie-api-go/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin     = model.Identity{Email: "admin@example.com", Role: model.RoleAdmin}
	moderator = model.Identity{Email: "mod@example.com", Role: model.RoleModerator}
	ana       = model.Identity{Email: "ana@example.com", Role: model.RoleUser}
	bia       = model.Identity{Email: "bia@example.com", Role: model.RoleUser}
)

type fixture struct {
	store   repository.Store
	records *record.Service
	keys    *security.KeyManager
	service *user.Service
}

func newFixture(t *testing.T) *fixture {
	logger := testutils.TestLogger(t)
	store := testutils.NewTestStore(t)
	records := record.NewService(store, new(mocks.MockEstimator), record.NewLocker(), logger)

	keys, err := security.NewKeyManager([]byte("0123456789abcdef0123456789abcdef"), time.Hour, logger)
	require.NoError(t, err)

	f := &fixture{
		store:   store,
		records: records,
		keys:    keys,
		service: user.NewService(store, records, keys, nil, 6, logger),
	}

	for _, id := range []model.Identity{admin, moderator, ana, bia} {
		require.NoError(t, f.service.Create(context.Background(), admin, user.CreateInput{
			SignupInput: user.SignupInput{
				Email:                  id.Email,
				Name:                   "Test",
				Surname:                "User",
				Password:               "secret-" + string(id.Role),
				ExpectedCaloriesPerDay: 1000,
			},
			Role: string(id.Role),
		}))
	}
	return f
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, status, apierrors.StatusOf(err), "unexpected error: %v", err)
}

func intPtr(n int) *int { return &n }
func strPtr(s string) *string { return &s }

func TestService_SignupAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := user.SignupInput{
		Email:                  "new@example.com",
		Name:                   "New",
		Surname:                "Person",
		Password:               "password",
		ExpectedCaloriesPerDay: 1800,
	}
	require.NoError(t, f.service.Signup(ctx, in))

	stored, err := f.store.Users().GetByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, stored.Role)
	assert.NotEqual(t, "password", stored.PasswordHash)

	t.Run("duplicate signup", func(t *testing.T) {
		requireStatus(t, f.service.Signup(ctx, in), http.StatusBadRequest)
	})

	t.Run("invalid target", func(t *testing.T) {
		bad := in
		bad.Email = "other@example.com"
		bad.ExpectedCaloriesPerDay = 0
		requireStatus(t, f.service.Signup(ctx, bad), http.StatusBadRequest)
	})

	t.Run("short password", func(t *testing.T) {
		bad := in
		bad.Email = "other@example.com"
		bad.Password = "abc"
		requireStatus(t, f.service.Signup(ctx, bad), http.StatusBadRequest)
	})

	t.Run("login issues a token with the stored role", func(t *testing.T) {
		token, err := f.service.Login(ctx, "new@example.com", "password")
		require.NoError(t, err)

		claims, err := f.keys.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", claims.Email)
		assert.Equal(t, "user", claims.Role)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		_, wrongPassword := f.service.Login(ctx, "new@example.com", "nope")
		_, unknownEmail := f.service.Login(ctx, "ghost@example.com", "password")

		requireStatus(t, wrongPassword, http.StatusBadRequest)
		requireStatus(t, unknownEmail, http.StatusBadRequest)
		assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
		assert.Contains(t, wrongPassword.Error(), "Wrong Credentials")
	})
}

func TestService_CreateRoleRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	input := func(email, role string) user.CreateInput {
		return user.CreateInput{
			SignupInput: user.SignupInput{
				Email: email, Name: "N", Surname: "S", Password: "password", ExpectedCaloriesPerDay: 2000,
			},
			Role: role,
		}
	}

	assert.NoError(t, f.service.Create(ctx, moderator, input("u1@example.com", "user")))
	assert.NoError(t, f.service.Create(ctx, moderator, input("m1@example.com", "moderator")))
	requireStatus(t, f.service.Create(ctx, moderator, input("a1@example.com", "admin")), http.StatusForbidden)
	requireStatus(t, f.service.Create(ctx, ana, input("u2@example.com", "user")), http.StatusForbidden)
	requireStatus(t, f.service.Create(ctx, admin, input("x@example.com", "root")), http.StatusBadRequest)
	assert.NoError(t, f.service.Create(ctx, admin, input("a2@example.com", "ADMIN")))
}

func TestService_GetAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("user sees self without role", func(t *testing.T) {
		got, err := f.service.Get(ctx, ana, ana.Email)
		require.NoError(t, err)
		assert.Equal(t, ana.Email, got.Email)
		assert.Empty(t, got.Role)
		assert.Empty(t, got.PasswordHash)
	})

	t.Run("user targeting another email is forbidden whether it exists or not", func(t *testing.T) {
		_, err := f.service.Get(ctx, ana, bia.Email)
		requireStatus(t, err, http.StatusForbidden)
		_, err = f.service.Get(ctx, ana, "ghost@example.com")
		requireStatus(t, err, http.StatusForbidden)
	})

	t.Run("moderator", func(t *testing.T) {
		got, err := f.service.Get(ctx, moderator, ana.Email)
		require.NoError(t, err)
		assert.Equal(t, model.RoleUser, got.Role)

		_, err = f.service.Get(ctx, moderator, admin.Email)
		requireStatus(t, err, http.StatusForbidden)

		_, err = f.service.Get(ctx, moderator, "ghost@example.com")
		requireStatus(t, err, http.StatusNotFound)
	})

	emails := func(users []*model.User) []string {
		out := make([]string, 0, len(users))
		for _, u := range users {
			out = append(out, u.Email)
		}
		return out
	}

	t.Run("list scopes", func(t *testing.T) {
		users, err := f.service.List(ctx, admin, user.ListInput{})
		require.NoError(t, err)
		assert.Equal(t, []string{admin.Email, ana.Email, bia.Email, moderator.Email}, emails(users))

		users, err = f.service.List(ctx, moderator, user.ListInput{})
		require.NoError(t, err)
		assert.Equal(t, []string{ana.Email, bia.Email, moderator.Email}, emails(users))

		users, err = f.service.List(ctx, ana, user.ListInput{})
		require.NoError(t, err)
		assert.Equal(t, []string{ana.Email}, emails(users))
	})

	t.Run("list filter intersects predicates", func(t *testing.T) {
		require.NoError(t, f.service.Update(ctx, admin, moderator.Email, user.UpdateInput{ExpectedCaloriesPerDay: intPtr(1500)}))

		users, err := f.service.List(ctx, admin, user.ListInput{
			Filter: `role eq "moderator" and expectedCaloriesPerDay lt 2000`,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{moderator.Email}, emails(users))

		users, err = f.service.List(ctx, admin, user.ListInput{Filter: `role eq "moderator" and expectedCaloriesPerDay lt 1000`})
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("list paging", func(t *testing.T) {
		users, err := f.service.List(ctx, admin, user.ListInput{Limit: 2, Skip: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{ana.Email, bia.Email}, emails(users))
	})
}

func TestService_UpdateTargetRecomputesRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Update(ctx, ana, ana.Email, user.UpdateInput{ExpectedCaloriesPerDay: intPtr(300)}))

	for _, c := range []struct {
		clock    string
		calories int
	}{{"08:00:00", 200}, {"12:00:00", 500}} {
		n := c.calories
		_, err := f.records.Create(ctx, ana, record.CreateInput{
			Date: "2020-03-01", Time: c.clock, Text: "meal", NumberOfCalories: &n,
		})
		require.NoError(t, err)
	}

	flags := func() []bool {
		records, err := f.store.Records().ListByOwner(ctx, ana.Email)
		require.NoError(t, err)
		out := []bool{}
		for _, r := range records {
			out = append(out, r.LessThanExpectedCalories)
		}
		return out
	}
	assert.Equal(t, []bool{true, false}, flags())

	require.NoError(t, f.service.Update(ctx, ana, ana.Email, user.UpdateInput{ExpectedCaloriesPerDay: intPtr(1400)}))
	assert.Equal(t, []bool{true, true}, flags())

	stored, err := f.store.Users().GetByEmail(ctx, ana.Email)
	require.NoError(t, err)
	assert.Equal(t, 1400, stored.ExpectedCaloriesPerDay)

	t.Run("invalid target leaves everything untouched", func(t *testing.T) {
		err := f.service.Update(ctx, ana, ana.Email, user.UpdateInput{ExpectedCaloriesPerDay: intPtr(0)})
		requireStatus(t, err, http.StatusBadRequest)
		assert.Equal(t, []bool{true, true}, flags())
	})
}

func TestService_UpdateFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Update(ctx, ana, ana.Email, user.UpdateInput{
		Name:     strPtr("Ana"),
		Password: strPtr("new-password"),
	}))

	_, err := f.service.Login(ctx, ana.Email, "new-password")
	assert.NoError(t, err)
	_, err = f.service.Login(ctx, ana.Email, "secret-user")
	requireStatus(t, err, http.StatusBadRequest)

	t.Run("role changes follow create rules", func(t *testing.T) {
		requireStatus(t, f.service.Update(ctx, ana, ana.Email, user.UpdateInput{Role: strPtr("admin")}), http.StatusForbidden)
		requireStatus(t, f.service.Update(ctx, moderator, bia.Email, user.UpdateInput{Role: strPtr("admin")}), http.StatusForbidden)
		assert.NoError(t, f.service.Update(ctx, moderator, bia.Email, user.UpdateInput{Role: strPtr("moderator")}))
		// bia agora é moderadora e sai do alcance do outro moderador
		requireStatus(t, f.service.Update(ctx, moderator, bia.Email, user.UpdateInput{Name: strPtr("B")}), http.StatusForbidden)
		assert.NoError(t, f.service.Update(ctx, admin, bia.Email, user.UpdateInput{Role: strPtr("admin")}))
	})

	t.Run("same role is not a change", func(t *testing.T) {
		assert.NoError(t, f.service.Update(ctx, ana, ana.Email, user.UpdateInput{Role: strPtr("user")}))
	})
}

func TestService_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n := 100
	_, err := f.records.Create(ctx, ana, record.CreateInput{Date: "2020-03-01", Time: "08:00:00", Text: "meal", NumberOfCalories: &n})
	require.NoError(t, err)

	requireStatus(t, f.service.Delete(ctx, bia, ana.Email), http.StatusForbidden)
	requireStatus(t, f.service.Delete(ctx, moderator, admin.Email), http.StatusForbidden)

	require.NoError(t, f.service.Delete(ctx, moderator, ana.Email))

	_, err = f.store.Users().GetByEmail(ctx, ana.Email)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	records, err := f.store.Records().ListByOwner(ctx, ana.Email)
	require.NoError(t, err)
	assert.Empty(t, records)

	requireStatus(t, f.service.Delete(ctx, admin, ana.Email), http.StatusNotFound)
}
