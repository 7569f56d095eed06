// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package adapters

import (
	"time"

	"github.com/AccelByte/go-jose/jwt"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/apierror"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/envelope"
)

// JWTVerifier verifies bearer credentials issued by the auth service as
// HS256-signed JWTs. The subject claim carries the player ID.
type JWTVerifier struct {
	key []byte
	now func() time.Time
}

func NewJWTVerifier(key []byte) *JWTVerifier {
	return &JWTVerifier{key: key, now: time.Now}
}

// Verify parses and validates the credential, returning the player ID.
func (v *JWTVerifier) Verify(scope *envelope.Scope, credential string) (string, error) {
	if credential == "" {
		return "", apierror.Wrap(apierror.ErrUnauthenticated, "missing credential")
	}

	token, err := jwt.ParseSigned(credential)
	if err != nil {
		return "", apierror.Wrap(apierror.ErrUnauthenticated, "malformed credential: %v", err)
	}

	var claims jwt.Claims
	if err := token.Claims(v.key, &claims); err != nil {
		return "", apierror.Wrap(apierror.ErrUnauthenticated, "invalid signature: %v", err)
	}

	if err := claims.Validate(jwt.Expected{Time: v.now()}); err != nil {
		return "", apierror.Wrap(apierror.ErrUnauthenticated, "expired credential: %v", err)
	}

	if claims.Subject == "" {
		return "", apierror.Wrap(apierror.ErrUnauthenticated, "credential has no subject")
	}

	return claims.Subject, nil
}
