package service

import (
	"testing"

	"agendo/cmd/internal/domain/entity"
	cognitoclient "agendo/cmd/internal/integration/aws/cognito"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCognito struct {
	signUpErr  error
	signInErr  error
	confirmErr error

	signUpCalls  int
	signInCalls  int
	confirmCalls int
	deletedUsers []string
}

func (f *fakeCognito) SignUp(user *cognitoclient.User) (string, error) {
	f.signUpCalls++
	if f.signUpErr != nil {
		return "", f.signUpErr
	}
	return "sub-" + user.Email, nil
}

func (f *fakeCognito) ConfirmAccount(confirmation *cognitoclient.UserConfirmation) error {
	f.confirmCalls++
	return f.confirmErr
}

func (f *fakeCognito) SignIn(login *cognitoclient.UserLogin) (*cognitoclient.AuthCreate, error) {
	f.signInCalls++
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &cognitoclient.AuthCreate{AccessToken: "access", IDToken: "id"}, nil
}

func (f *fakeCognito) SignOut(accessToken string) error {
	return nil
}

func (f *fakeCognito) AdminDeleteUser(email string) error {
	f.deletedUsers = append(f.deletedUsers, email)
	return nil
}

func idpError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func newUserFixture() (*DefaultUserService, *fakeUserRepo, *fakeCognito) {
	repo := &fakeUserRepo{users: map[string]*entity.User{}}
	cog := &fakeCognito{}
	return NewUserService(repo, newTestValidator(), cog), repo, cog
}

func signupReq() *CreateUserRequest {
	return &CreateUserRequest{
		Username: "ada",
		Email:    "ada@example.com",
		Password: "Sup3r!secret",
	}
}

func TestCreateUserHappyPath(t *testing.T) {
	svc, repo, cog := newUserFixture()

	require.Nil(t, svc.CreateUser(signupReq()))
	assert.Equal(t, 1, cog.signUpCalls)

	user, _ := repo.FindByEmail("ada@example.com")
	require.NotNil(t, user)
	assert.Equal(t, "sub-ada@example.com", user.SubUUID)
	assert.False(t, user.EmailVerified)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc, _, cog := newUserFixture()

	require.Nil(t, svc.CreateUser(signupReq()))
	apierr := svc.CreateUser(signupReq())
	require.NotNil(t, apierr)
	assert.Equal(t, 409, apierr.Code())
	assert.Equal(t, 1, cog.signUpCalls)
}

func TestCreateUserWeakPassword(t *testing.T) {
	svc, _, cog := newUserFixture()

	req := signupReq()
	req.Password = "alllowercase"
	apierr := svc.CreateUser(req)
	require.NotNil(t, apierr)
	assert.Equal(t, 400, apierr.Code())
	assert.Zero(t, cog.signUpCalls)
}

func TestCooldownGate(t *testing.T) {
	svc, repo, cog := newUserFixture()
	_ = repo.Save(&entity.User{SubUUID: "s", Username: "ada", Email: "ada@example.com"})

	cog.signInErr = idpError("TooManyRequestsException")
	login := &UserLoginRequest{Email: "ada@example.com", Password: "Sup3r!secret"}

	_, apierr := svc.Login(login)
	require.NotNil(t, apierr)
	assert.Equal(t, 429, apierr.Code())
	assert.Equal(t, 1, cog.signInCalls)

	// While the cooldown window is open, resubmission is blocked locally
	// without contacting the identity provider again.
	cog.signInErr = nil
	_, apierr = svc.Login(login)
	require.NotNil(t, apierr)
	assert.Equal(t, 429, apierr.Code())
	assert.Equal(t, 1, cog.signInCalls)
}

func TestIDPErrorMapping(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"UserNotFoundException", 404},
		{"UserNotConfirmedException", 403},
		{"NotAuthorizedException", 401},
		{"SomethingUnexpected", 500},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			svc, repo, cog := newUserFixture()
			_ = repo.Save(&entity.User{SubUUID: "s", Username: "ada", Email: "ada@example.com"})
			cog.signInErr = idpError(tt.code)

			_, apierr := svc.Login(&UserLoginRequest{Email: "ada@example.com", Password: "Sup3r!secret"})
			require.NotNil(t, apierr)
			assert.Equal(t, tt.want, apierr.Code())
		})
	}
}

func TestConfirmSignupMarksVerified(t *testing.T) {
	svc, repo, _ := newUserFixture()
	require.Nil(t, svc.CreateUser(signupReq()))

	apierr := svc.ConfirmSignup(&ConfirmSignupRequest{Email: "ada@example.com", Code: "123456"})
	require.Nil(t, apierr)

	user, _ := repo.FindByEmail("ada@example.com")
	assert.True(t, user.EmailVerified)

	// A second confirm is rejected.
	apierr = svc.ConfirmSignup(&ConfirmSignupRequest{Email: "ada@example.com", Code: "123456"})
	require.NotNil(t, apierr)
	assert.Equal(t, 409, apierr.Code())
}

func TestSignupRevertedWhenLocalWriteFails(t *testing.T) {
	repo := &failingUserRepo{}
	cog := &fakeCognito{}
	svc := NewUserService(repo, newTestValidator(), cog)

	apierr := svc.CreateUser(signupReq())
	require.NotNil(t, apierr)
	assert.Equal(t, 500, apierr.Code())
	assert.Equal(t, []string{"ada@example.com"}, cog.deletedUsers)
}

type failingUserRepo struct {
	fakeUserRepo
}

func (f *failingUserRepo) ExistsByEmail(string) (bool, error) { return false, nil }

func (f *failingUserRepo) Save(*entity.User) error {
	return assert.AnError
}
