package services

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseIdentityPrefix namespaces external ids vouched for by Firebase.
const FirebaseIdentityPrefix = "firebase:"

var ErrInvalidToken = errors.New("invalid bearer token")

// TokenVerifier turns a bearer token into the identity it proves.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (ExternalIdentity, error)
}

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier verifies Firebase ID tokens.
type FirebaseVerifier struct {
	client idTokenVerifier
}

// NewFirebaseVerifier initializes the Firebase Admin SDK from a service account JSON document.
func NewFirebaseVerifier(ctx context.Context, credentialsJSON string) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsJSON([]byte(credentialsJSON)))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth client: %w", err)
	}

	return &FirebaseVerifier{client: client}, nil
}

// Verify checks the token signature and expiry and extracts the identity.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (ExternalIdentity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return identityFromToken(token), nil
}

func identityFromToken(token *auth.Token) ExternalIdentity {
	identity := ExternalIdentity{ExternalID: FirebaseIdentityPrefix + token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		identity.DisplayName = name
	}
	return identity
}
