package middleware

import (
	"context"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitbill/internal/auth"
	"github.com/mmynk/splitbill/internal/models"
)

type ping struct{}

// captureSession returns a UnaryFunc that records the session it was called with.
func captureSession(got **auth.Session) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		*got = GetSession(ctx)
		return connect.NewResponse(&ping{}), nil
	}
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	user := models.NewUser("alice@example.com", "Alice", "hash")
	token, err := jwtManager.Generate(user)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic " + token},
		{name: "bad token", header: "Bearer nope"},
		{name: "valid token", header: "Bearer " + token, want: user.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var session *auth.Session
			handler := RequireAuth(jwtManager)(captureSession(&session))

			req := connect.NewRequest(&ping{})
			if tt.header != "" {
				req.Header().Set("Authorization", tt.header)
			}

			_, err := handler(context.Background(), req)
			if tt.want == "" {
				require.Error(t, err)
				assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
				assert.Nil(t, session)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, session)
			assert.Equal(t, tt.want, session.UserID)
			assert.Equal(t, "Alice", session.DisplayName)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwtManager.Generate(models.NewUser("bob@example.com", "Bob", "hash"))
	require.NoError(t, err)

	var session *auth.Session
	handler := OptionalAuth(jwtManager)(captureSession(&session))

	_, err = handler(context.Background(), connect.NewRequest(&ping{}))
	require.NoError(t, err)
	assert.Nil(t, session)

	req := connect.NewRequest(&ping{})
	req.Header().Set("Authorization", "Bearer garbage")
	_, err = handler(context.Background(), req)
	require.NoError(t, err, "invalid tokens are ignored")
	assert.Nil(t, session)

	req = connect.NewRequest(&ping{})
	req.Header().Set("Authorization", "Bearer "+token)
	_, err = handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "bob@example.com", session.Email)
}

func TestGetUserID_Anonymous(t *testing.T) {
	assert.Empty(t, GetUserID(context.Background()))
	ctx := WithSession(context.Background(), &auth.Session{UserID: "u-1"})
	assert.Equal(t, "u-1", GetUserID(ctx))
}
