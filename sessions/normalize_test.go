package sessions_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/hr-console/sessions"
	"github.com/jrsteele09/hr-console/users"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestDecodeLoginResponse_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		shape   sessions.Shape
		access  string
		refresh string
		role    users.RoleType
		email   string
		expiry  time.Time
	}{
		{
			name:    "v3 nested user with oauth fields",
			body:    `{"user":{"id":7,"email":"ana@x.com","name":"Ana","role":"hr"},"access_token":"at","refresh_token":"rt","token_type":"bearer","expires_in":900}`,
			shape:   sessions.ShapeV3OAuth,
			access:  "at",
			refresh: "rt",
			role:    users.RoleHR,
			email:   "ana@x.com",
			expiry:  testNow.Add(900 * time.Second),
		},
		{
			name:    "v2 token with nested user",
			body:    `{"token":"t2","refresh_token":"r2","user":{"id":"u-1","email":"b@x.com","role":"admin"}}`,
			shape:   sessions.ShapeV2Token,
			access:  "t2",
			refresh: "r2",
			role:    users.RoleAdmin,
			email:   "b@x.com",
		},
		{
			name:   "v1 flat legacy",
			body:   `{"id":3,"email":"c@x.com","name":"C","role":"admin","token":"t1"}`,
			shape:  sessions.ShapeV1Flat,
			access: "t1",
			role:   users.RoleAdmin,
			email:  "c@x.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, shape, err := sessions.DecodeLoginResponse([]byte(tt.body), testNow)
			require.NoError(t, err)
			require.Equal(t, tt.shape, shape)
			require.Equal(t, tt.access, s.AccessToken)
			require.Equal(t, tt.refresh, s.RefreshToken)
			require.Equal(t, tt.role, s.User.Role)
			require.Equal(t, tt.email, s.User.Email)
			require.Equal(t, tt.expiry, s.Expiry)
		})
	}
}

func TestDecodeLoginResponse_Errors(t *testing.T) {
	_, _, err := sessions.DecodeLoginResponse([]byte(`not json`), testNow)
	require.ErrorIs(t, err, sessions.ErrMalformedResponse)

	_, _, err = sessions.DecodeLoginResponse([]byte(`{"user":{"role":"admin"}}`), testNow)
	require.ErrorIs(t, err, sessions.ErrMissingToken)
}

func TestDecodeLoginResponse_RoleMissingIsKeptEmpty(t *testing.T) {
	s, _, err := sessions.DecodeLoginResponse([]byte(`{"access_token":"t"}`), testNow)
	require.NoError(t, err)
	require.Empty(t, s.User.Role)
}

func TestResolveExpiry_FromJWTClaim(t *testing.T) {
	exp := testNow.Add(30 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": exp.Unix(),
	}).SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	require.True(t, exp.Equal(sessions.ResolveExpiry(token, 0, testNow)))
	require.Equal(t, testNow.Add(time.Minute), sessions.ResolveExpiry(token, 60, testNow))
	require.True(t, sessions.ResolveExpiry("opaque-token", 0, testNow).IsZero())
}

func TestSession_ExpiresWithin(t *testing.T) {
	s := sessions.Session{Expiry: testNow.Add(30 * time.Second)}
	require.True(t, s.ExpiresWithin(testNow, time.Minute))
	require.False(t, s.ExpiresWithin(testNow, 10*time.Second))
	require.False(t, sessions.Session{}.ExpiresWithin(testNow, time.Hour))
}

func TestSession_OAuth2Token(t *testing.T) {
	tok := sessions.Session{AccessToken: "at", Expiry: testNow}.OAuth2Token()
	require.Equal(t, "at", tok.AccessToken)
	require.Equal(t, "Bearer", tok.Type())
}

func TestStoredUser_LegacyAndNested(t *testing.T) {
	var legacy sessions.StoredUser
	require.NoError(t, json.Unmarshal([]byte(`{"role":"admin","token":"t1"}`), &legacy))
	require.True(t, legacy.IsLegacy())
	require.Equal(t, users.RoleAdmin, legacy.UserRole())
	require.Equal(t, users.RoleAdmin, legacy.Profile().Role)

	s := sessions.Session{AccessToken: "at", User: users.User{ID: "9", Role: users.RoleHR}}
	raw, err := json.Marshal(sessions.NewStoredUser(s))
	require.NoError(t, err)

	var nested sessions.StoredUser
	require.NoError(t, json.Unmarshal(raw, &nested))
	require.False(t, nested.IsLegacy())
	require.Equal(t, users.RoleHR, nested.UserRole())
	require.Equal(t, "at", nested.Session("at", "").AccessToken)
}
