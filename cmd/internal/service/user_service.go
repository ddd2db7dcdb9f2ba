package service

import (
	"errors"
	"sync"
	"time"

	"agendo/cmd/internal/domain/entity"
	cognitoclient "agendo/cmd/internal/integration/aws/cognito"
	"agendo/cmd/internal/utils"
	"agendo/cmd/internal/utils/apierror"
	"github.com/aws/smithy-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

// authCooldown is how long resubmission stays locally blocked after the
// identity provider throttles an email address.
const authCooldown = 15 * time.Second

type UserRepository interface {
	FindByID(id int) (*entity.User, error)
	FindBySub(sub string) (*entity.User, error)
	FindByEmail(email string) (*entity.User, error)
	ExistsByEmail(email string) (bool, error)
	Save(user *entity.User) error
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=2,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=64,nospaces,hasspecial,hasdigit,hasupper,haslower"`
}

type UserLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=64"`
}

type ConfirmSignupRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,min=1,max=6"`
}

type UserResponse struct {
	ID            int    `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type UserLoginResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
}

type DefaultUserService struct {
	UserRepo UserRepository
	Validate *validator.Validate
	Cognito  cognitoclient.CognitoInterface

	cooldownMu sync.Mutex
	cooldowns  map[string]time.Time
}

func NewUserService(userRepo UserRepository, validate *validator.Validate, cogClient cognitoclient.CognitoInterface) *DefaultUserService {
	return &DefaultUserService{
		UserRepo:  userRepo,
		Validate:  validate,
		Cognito:   cogClient,
		cooldowns: make(map[string]time.Time),
	}
}

func (u *DefaultUserService) GetMe(subID string) (*UserResponse, apierror.ErrorResponse) {
	user, err := u.UserRepo.FindBySub(subID)
	if err != nil {
		log.Errorf("failed to find user by sub %s: %v", subID, err)
		return nil, apierror.InternalServerError
	}
	if user == nil {
		return nil, apierror.NotFoundError
	}
	return toUserResponse(user), nil
}

// CreateUser registers the user with the identity provider, which mails a
// verification code, then writes the local row. A failed local write
// reverts the provider registration so signup can be retried cleanly.
func (u *DefaultUserService) CreateUser(req *CreateUserRequest) apierror.ErrorResponse {
	utils.Sanitize(req)
	if err := u.Validate.Struct(req); err != nil {
		return apierror.FromValidationError(err)
	}
	if apierr := u.checkCooldown(req.Email); apierr != nil {
		return apierr
	}

	exists, err := u.UserRepo.ExistsByEmail(req.Email)
	if err != nil {
		log.Errorf("failed to check if user exists: %v", err)
		return apierror.InternalServerError
	}
	if exists {
		return apierror.UserAlreadyExistsError
	}

	sub, err := u.Cognito.SignUp(&cognitoclient.User{Email: req.Email, Password: req.Password})
	if err != nil {
		return u.mapIDPError("signup", req.Email, err)
	}

	now := utils.NowUTC()
	user := &entity.User{
		SubUUID:       sub,
		Username:      req.Username,
		Email:         req.Email,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := u.UserRepo.Save(user); err != nil {
		_ = u.Cognito.AdminDeleteUser(req.Email)
		log.Errorf("failed to create user row: %v", err)
		return apierror.InternalServerError
	}
	return nil
}

func (u *DefaultUserService) Login(req *UserLoginRequest) (*UserLoginResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if err := u.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}
	if apierr := u.checkCooldown(req.Email); apierr != nil {
		return nil, apierr
	}

	user, err := u.UserRepo.FindByEmail(req.Email)
	if err != nil {
		log.Errorf("failed to fetch user by email: %v", err)
		return nil, apierror.InternalServerError
	}
	if user == nil {
		return nil, apierror.IDPUserNotFoundError
	}

	auth, err := u.Cognito.SignIn(&cognitoclient.UserLogin{Email: req.Email, Password: req.Password})
	if err != nil {
		return nil, u.mapIDPError("signin", req.Email, err)
	}
	return &UserLoginResponse{AccessToken: auth.AccessToken, IDToken: auth.IDToken}, nil
}

func (u *DefaultUserService) ConfirmSignup(req *ConfirmSignupRequest) apierror.ErrorResponse {
	utils.Sanitize(req)
	if err := u.Validate.Struct(req); err != nil {
		return apierror.FromValidationError(err)
	}
	if apierr := u.checkCooldown(req.Email); apierr != nil {
		return apierr
	}

	user, err := u.UserRepo.FindByEmail(req.Email)
	if err != nil {
		log.Errorf("failed to fetch user by email: %v", err)
		return apierror.InternalServerError
	}
	if user == nil {
		return apierror.IDPUserNotFoundError
	}
	if user.EmailVerified {
		return apierror.UserAlreadyConfirmedError
	}

	if err := u.Cognito.ConfirmAccount(&cognitoclient.UserConfirmation{Email: req.Email, Code: req.Code}); err != nil {
		return u.mapIDPError("confirmation", req.Email, err)
	}

	user.EmailVerified = true
	user.UpdatedAt = utils.NowUTC()
	if err := u.UserRepo.Save(user); err != nil {
		// Cognito already holds the verified state; the local flag catches
		// up on the next confirm attempt.
		log.Errorf("failed to update verified flag for user %d: %v", user.ID, err)
	}
	return nil
}

func (u *DefaultUserService) Logout(accessToken string) apierror.ErrorResponse {
	if err := u.Cognito.SignOut(accessToken); err != nil {
		return u.mapIDPError("signout", "", err)
	}
	return nil
}

// checkCooldown blocks an email still inside its throttle window without
// contacting the identity provider again.
func (u *DefaultUserService) checkCooldown(email string) apierror.ErrorResponse {
	u.cooldownMu.Lock()
	defer u.cooldownMu.Unlock()

	until, ok := u.cooldowns[email]
	if !ok {
		return nil
	}
	remaining := time.Until(until)
	if remaining <= 0 {
		delete(u.cooldowns, email)
		return nil
	}
	return apierror.NewRateLimitedError(int(remaining.Round(time.Second).Seconds()))
}

func (u *DefaultUserService) startCooldown(email string) {
	if email == "" {
		return
	}
	u.cooldownMu.Lock()
	u.cooldowns[email] = time.Now().Add(authCooldown)
	u.cooldownMu.Unlock()
}

func (u *DefaultUserService) mapIDPError(op, email string, err error) apierror.ErrorResponse {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		log.Errorf("%s failed for user (%s): %v", op, email, err)
		return apierror.InternalServerError
	}

	switch apiErr.ErrorCode() {
	case "TooManyRequestsException", "LimitExceededException":
		u.startCooldown(email)
		return apierror.NewRateLimitedError(int(authCooldown.Seconds()))
	case "UserNotFoundException":
		return apierror.IDPUserNotFoundError
	case "UserNotConfirmedException":
		return apierror.IDPUserNotConfirmedError
	case "NotAuthorizedException":
		return apierror.IDPCredentialsMismatchError
	case "InvalidPasswordException":
		return apierror.IDPInvalidPasswordError
	case "UsernameExistsException":
		return apierror.IDPExistingEmailError
	case "CodeMismatchException":
		return apierror.IDPConfirmCodeMismatchError
	case "ExpiredCodeException":
		return apierror.IDPConfirmCodeExpiredError
	default:
		log.Errorf("%s failed for user (%s): %s - %s", op, email, apiErr.ErrorCode(), apiErr.ErrorMessage())
		return apierror.InternalServerError
	}
}

func toUserResponse(user *entity.User) *UserResponse {
	return &UserResponse{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		CreatedAt:     utils.FormatEpoch(user.CreatedAt),
		UpdatedAt:     utils.FormatEpoch(user.UpdatedAt),
	}
}
