package cognitoclient

import (
	"context"
	"errors"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

type User struct {
	Email    string
	Password string
}

type UserLogin struct {
	Email    string
	Password string
}

type UserConfirmation struct {
	Email string
	Code  string
}

type AuthCreate struct {
	AccessToken string
	IDToken     string
}

// CognitoInterface is the authentication collaborator. Every operation is
// scoped to the pool's app client; errors surface as smithy APIErrors that
// the user service maps to API responses.
type CognitoInterface interface {
	SignUp(user *User) (string, error)
	ConfirmAccount(confirmation *UserConfirmation) error
	SignIn(login *UserLogin) (*AuthCreate, error)
	SignOut(accessToken string) error
	AdminDeleteUser(email string) error
}

type cognitoClient struct {
	client     *cognitoidentityprovider.Client
	clientID   string
	userPoolID string
}

func InitCognitoClient() (CognitoInterface, error) {
	clientID := os.Getenv("COGNITO_CLIENT_ID")
	userPoolID := os.Getenv("COGNITO_USER_POOL_ID")
	if clientID == "" || userPoolID == "" {
		return nil, errors.New("COGNITO_CLIENT_ID and COGNITO_USER_POOL_ID must be set")
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, err
	}

	return &cognitoClient{
		client:     cognitoidentityprovider.NewFromConfig(cfg),
		clientID:   clientID,
		userPoolID: userPoolID,
	}, nil
}

// SignUp registers the user and returns the Cognito subject uuid. Cognito
// mails the verification code itself.
func (c *cognitoClient) SignUp(user *User) (string, error) {
	out, err := c.client.SignUp(context.Background(), &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(user.Email),
		Password: aws.String(user.Password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(user.Email)},
		},
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.UserSub), nil
}

func (c *cognitoClient) ConfirmAccount(confirmation *UserConfirmation) error {
	_, err := c.client.ConfirmSignUp(context.Background(), &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(confirmation.Email),
		ConfirmationCode: aws.String(confirmation.Code),
	})
	return err
}

func (c *cognitoClient) SignIn(login *UserLogin) (*AuthCreate, error) {
	out, err := c.client.InitiateAuth(context.Background(), &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": login.Email,
			"PASSWORD": login.Password,
		},
	})
	if err != nil {
		return nil, err
	}

	if out.AuthenticationResult == nil {
		return nil, errors.New("authentication produced no tokens")
	}
	return &AuthCreate{
		AccessToken: aws.ToString(out.AuthenticationResult.AccessToken),
		IDToken:     aws.ToString(out.AuthenticationResult.IdToken),
	}, nil
}

// SignOut invalidates every token issued for the session holder.
func (c *cognitoClient) SignOut(accessToken string) error {
	_, err := c.client.GlobalSignOut(context.Background(), &cognitoidentityprovider.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	})
	return err
}

// AdminDeleteUser removes the pool entry; used to revert a signup whose
// local row could not be written.
func (c *cognitoClient) AdminDeleteUser(email string) error {
	_, err := c.client.AdminDeleteUser(context.Background(), &cognitoidentityprovider.AdminDeleteUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(email),
	})
	return err
}
