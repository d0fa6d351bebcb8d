package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitbill/internal/middleware"
	"github.com/mmynk/splitbill/internal/receipt"
	"github.com/mmynk/splitbill/pkg/api"
	"github.com/mmynk/splitbill/pkg/api/apiconnect"
)

var pngImage = []byte("\x89PNG\x0D\x0A\x1A\x0A\x00\x00\x00\x0DIHDR")

type fakeExtractor struct {
	content string
	err     error
	calls   atomic.Int32
}

func (f *fakeExtractor) Extract(ctx context.Context, imageDataURL string) (string, error) {
	f.calls.Add(1)
	return f.content, f.err
}

type fakeArchiver struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeArchiver) Store(ctx context.Context, userID, contentType string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	key := "receipts/" + userID + "/" + contentType
	f.keys = append(f.keys, key)
	return key, nil
}

func setupReceiptServer(t *testing.T, extractor receipt.Extractor, archive ImageArchiver, burst int) *apiconnect.ReceiptServiceClient {
	t.Helper()

	svc := NewReceiptService(extractor, middleware.NewRateLimiter(1, burst), archive, discardLogger)
	path, handler := apiconnect.NewReceiptServiceHandler(svc, connect.WithInterceptors(testAuthInterceptor()))
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return apiconnect.NewReceiptServiceClient(http.DefaultClient, server.URL)
}

func scanRequest(t *testing.T) *connect.Request[api.ScanReceiptRequest] {
	t.Helper()
	image, err := receipt.EncodeImage("image/png", pngImage)
	require.NoError(t, err)
	return connect.NewRequest(&api.ScanReceiptRequest{Image: image})
}

func TestScanReceipt(t *testing.T) {
	extractor := &fakeExtractor{content: "```json\n" + `[
		{"name": "Nasi Goreng", "price": 25000, "quantity": 2},
		{"name": "", "price": 1000, "quantity": 1},
		{"name": "Es Teh", "price": -5, "quantity": 1},
		{"name": "Kerupuk", "price": 2000, "quantity": 0}
	]` + "\n```"}
	archive := &fakeArchiver{}
	client := setupReceiptServer(t, extractor, archive, 5)

	resp, err := client.ScanReceipt(context.Background(), scanRequest(t))
	require.NoError(t, err)

	require.Len(t, resp.Msg.Items, 1)
	assert.Equal(t, api.ReceiptItem{Name: "Nasi Goreng", Price: 25000, Quantity: 2}, resp.Msg.Items[0])
	assert.Equal(t, []string{"receipts/" + testUserID + "/image/png"}, archive.keys)
}

func TestScanReceipt_MalformedPayloadYieldsNoItems(t *testing.T) {
	client := setupReceiptServer(t, &fakeExtractor{content: "sorry, I cannot read this"}, nil, 5)

	resp, err := client.ScanReceipt(context.Background(), scanRequest(t))
	require.NoError(t, err)
	assert.Empty(t, resp.Msg.Items)
}

func TestScanReceipt_ArchiveFailureIsNotFatal(t *testing.T) {
	extractor := &fakeExtractor{content: `[{"name": "Soto", "price": 20000, "quantity": 1}]`}
	client := setupReceiptServer(t, extractor, &fakeArchiver{err: errors.New("bucket down")}, 5)

	resp, err := client.ScanReceipt(context.Background(), scanRequest(t))
	require.NoError(t, err)
	assert.Len(t, resp.Msg.Items, 1)
}

func TestScanReceipt_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing image", func(t *testing.T) {
		extractor := &fakeExtractor{content: "[]"}
		client := setupReceiptServer(t, extractor, nil, 5)

		_, err := client.ScanReceipt(ctx, connect.NewRequest(&api.ScanReceiptRequest{}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
		assert.Zero(t, extractor.calls.Load(), "gateway must not be called for invalid images")
	})

	t.Run("unsupported type", func(t *testing.T) {
		client := setupReceiptServer(t, &fakeExtractor{content: "[]"}, nil, 5)

		_, err := client.ScanReceipt(ctx, connect.NewRequest(&api.ScanReceiptRequest{Image: "data:image/gif;base64,R0lGODlh"}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("anonymous", func(t *testing.T) {
		client := setupReceiptServer(t, &fakeExtractor{content: "[]"}, nil, 5)

		req := scanRequest(t)
		req.Header().Set("X-Test-User", "anonymous")
		_, err := client.ScanReceipt(ctx, req)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("gateway failure", func(t *testing.T) {
		client := setupReceiptServer(t, &fakeExtractor{err: receipt.ErrGateway}, nil, 5)

		_, err := client.ScanReceipt(ctx, scanRequest(t))
		assert.Equal(t, connect.CodeUnavailable, connect.CodeOf(err))
	})

	t.Run("gateway not configured", func(t *testing.T) {
		client := setupReceiptServer(t, &fakeExtractor{err: receipt.ErrGatewayNotConfigured}, nil, 5)

		_, err := client.ScanReceipt(ctx, scanRequest(t))
		assert.Equal(t, connect.CodeUnimplemented, connect.CodeOf(err))
	})

	t.Run("rate limited", func(t *testing.T) {
		client := setupReceiptServer(t, &fakeExtractor{content: "[]"}, nil, 1)

		_, err := client.ScanReceipt(ctx, scanRequest(t))
		require.NoError(t, err)
		_, err = client.ScanReceipt(ctx, scanRequest(t))
		assert.Equal(t, connect.CodeResourceExhausted, connect.CodeOf(err))
	})
}
