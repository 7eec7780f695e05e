package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseGoogleVerifier verifies Google sign-ins federated through Firebase Auth.
type FirebaseGoogleVerifier struct {
	client  *firebaseauth.Client
	timeout time.Duration
}

// NewFirebaseGoogleVerifier initialises the Admin SDK for projectID.
func NewFirebaseGoogleVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseGoogleVerifier, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errors.New("firebase project id is required")
	}

	var clientOpts []option.ClientOption
	if credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}
	return &FirebaseGoogleVerifier{client: client, timeout: defaultVerifyTimeout}, nil
}

// VerifyGoogleCredential implements GoogleVerifier.
func (v *FirebaseGoogleVerifier) VerifyGoogleCredential(ctx context.Context, credential string) (GoogleProfile, error) {
	if v == nil || v.client == nil {
		return GoogleProfile{}, errors.New("firebase verifier not initialised")
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	token, err := v.client.VerifyIDToken(ctx, strings.TrimSpace(credential))
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("%w: %v", ErrGoogleCredentialInvalid, err)
	}
	return profileFromFirebase(token)
}

func profileFromFirebase(token *firebaseauth.Token) (GoogleProfile, error) {
	if token == nil {
		return GoogleProfile{}, fmt.Errorf("%w: empty token", ErrGoogleCredentialInvalid)
	}
	if token.Firebase.SignInProvider != "" && token.Firebase.SignInProvider != "google.com" {
		return GoogleProfile{}, fmt.Errorf("%w: sign-in provider %q", ErrGoogleCredentialInvalid, token.Firebase.SignInProvider)
	}
	email := claimString(token.Claims, "email")
	if email == "" {
		return GoogleProfile{}, fmt.Errorf("%w: email claim missing", ErrGoogleCredentialInvalid)
	}
	if !truthy(token.Claims["email_verified"]) {
		return GoogleProfile{}, fmt.Errorf("%w: email not verified", ErrGoogleCredentialInvalid)
	}

	subject := token.UID
	if identities, ok := token.Firebase.Identities["google.com"].([]any); ok && len(identities) > 0 {
		if id, ok := identities[0].(string); ok && id != "" {
			subject = id
		}
	}
	return GoogleProfile{
		Subject: subject,
		Email:   strings.ToLower(email),
		Name:    claimString(token.Claims, "name"),
		Picture: claimString(token.Claims, "picture"),
	}, nil
}

func claimString(claims map[string]any, key string) string {
	if claims == nil {
		return ""
	}
	value, _ := claims[key].(string)
	return strings.TrimSpace(value)
}
