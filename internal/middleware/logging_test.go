package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitbill/internal/auth"
	"github.com/mmynk/splitbill/internal/models"
)

func TestLoggingInterceptor_WrapsAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	user := models.NewUser("alice@example.com", "Alice", "hash")
	token, err := jwtManager.Generate(user)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var session *auth.Session
	handler := LoggingInterceptor(logger)(RequireAuth(jwtManager)(captureSession(&session)))

	t.Run("rejected call is logged", func(t *testing.T) {
		buf.Reset()
		_, err := handler(context.Background(), connect.NewRequest(&ping{}))
		require.Error(t, err)

		assert.Contains(t, buf.String(), "RPC error")
		assert.Contains(t, buf.String(), "code=unauthenticated")
		assert.Contains(t, buf.String(), `user_id=""`)
	})

	t.Run("authenticated call carries user id", func(t *testing.T) {
		buf.Reset()
		req := connect.NewRequest(&ping{})
		req.Header().Set("Authorization", "Bearer "+token)

		_, err := handler(context.Background(), req)
		require.NoError(t, err)

		assert.Contains(t, buf.String(), "RPC ok")
		assert.Contains(t, buf.String(), "user_id="+user.ID)
	})
}
