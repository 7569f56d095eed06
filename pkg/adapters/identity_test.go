// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package adapters

import (
	"errors"
	"testing"
	"time"

	jose "github.com/AccelByte/go-jose"
	"github.com/AccelByte/go-jose/jwt"
	. "github.com/onsi/gomega"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/apierror"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/testsetup"
)

var signingKey = []byte("0123456789abcdef0123456789abcdef")

func signedToken(t *testing.T, subject string, expiry time.Time) string {
	t.Helper()

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: signingKey}, nil)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}

	claims := jwt.Claims{
		Subject: subject,
		Expiry:  jwt.NewNumericDate(expiry),
	}
	raw, err := jwt.Signed(signer).Claims(claims).CompactSerialize()
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)

	verifier := NewJWTVerifier(signingKey)
	credential := signedToken(t, "alice", time.Now().Add(time.Hour))

	playerID, err := verifier.Verify(g.TestScope, credential)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(playerID).To(Equal("alice"))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)

	verifier := NewJWTVerifier(signingKey)
	credential := signedToken(t, "alice", time.Now().Add(-time.Hour))

	_, err := verifier.Verify(g.TestScope, credential)
	g.Expect(errors.Is(err, apierror.ErrUnauthenticated)).To(BeTrue())
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)

	verifier := NewJWTVerifier([]byte("ffffffffffffffffffffffffffffffff"))
	credential := signedToken(t, "alice", time.Now().Add(time.Hour))

	_, err := verifier.Verify(g.TestScope, credential)
	g.Expect(errors.Is(err, apierror.ErrUnauthenticated)).To(BeTrue())
}

func TestVerifyRejectsGarbage(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)

	verifier := NewJWTVerifier(signingKey)

	_, err := verifier.Verify(g.TestScope, "not-a-jwt")
	g.Expect(errors.Is(err, apierror.ErrUnauthenticated)).To(BeTrue())

	_, err = verifier.Verify(g.TestScope, "")
	g.Expect(errors.Is(err, apierror.ErrUnauthenticated)).To(BeTrue())
}
