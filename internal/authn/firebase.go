// Package authn resolves bearer tokens to identities through the Firebase
// Auth service. User records and credentials live with the auth provider; the
// application only mirrors identities into local user rows by email.
package authn

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// ErrUnauthenticated is returned when a token is missing, malformed, expired,
// or rejected by the auth service.
var ErrUnauthenticated = errors.New("authn: unauthenticated")

// Identity is the resolved auth-service view of a caller.
type Identity struct {
	UID   string
	Email string
	Name  string
}

// Verifier resolves a raw bearer token to an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// FirebaseVerifier verifies Firebase ID tokens through the Admin SDK.
type FirebaseVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier initializes the Firebase app and auth client. When
// credentialsFile is empty the SDK falls back to application-default
// credentials.
func NewFirebaseVerifier(ctx context.Context, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("authn: init firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("authn: init firebase auth client: %w", err)
	}

	return &FirebaseVerifier{client: client}, nil
}

// Verify checks the ID token and extracts the email and display-name claims.
// Tokens without an email claim are rejected because local users are keyed by
// email.
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	identity := &Identity{UID: decoded.UID}
	if email, ok := decoded.Claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := decoded.Claims["name"].(string); ok {
		identity.Name = name
	}

	if identity.Email == "" {
		return nil, fmt.Errorf("%w: token has no email claim", ErrUnauthenticated)
	}

	return identity, nil
}
