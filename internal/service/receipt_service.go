package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitbill/internal/metrics"
	"github.com/mmynk/splitbill/internal/middleware"
	"github.com/mmynk/splitbill/internal/receipt"
	"github.com/mmynk/splitbill/pkg/api"
	"github.com/mmynk/splitbill/pkg/api/apiconnect"
)

var _ apiconnect.ReceiptServiceHandler = (*ReceiptService)(nil)

var (
	errScanRateLimited = errors.New("too many receipt scans, try again shortly")
	errScanFailed      = errors.New("failed to read receipt, please try again")
)

// ImageArchiver keeps a copy of a scanned receipt image.
type ImageArchiver interface {
	Store(ctx context.Context, userID, contentType string, data []byte) (string, error)
}

// ReceiptService implements the Connect ReceiptService.
type ReceiptService struct {
	extractor receipt.Extractor
	limiter   *middleware.RateLimiter
	archive   ImageArchiver // nil disables archiving
	logger    *slog.Logger
}

// NewReceiptService creates a ReceiptService. archive may be nil.
func NewReceiptService(extractor receipt.Extractor, limiter *middleware.RateLimiter, archive ImageArchiver, logger *slog.Logger) *ReceiptService {
	return &ReceiptService{
		extractor: extractor,
		limiter:   limiter,
		archive:   archive,
		logger:    logger,
	}
}

// ScanReceipt reads line items off a receipt photo. Whatever the gateway
// returns is sanitized; a payload with no usable items yields an empty list.
func (s *ReceiptService) ScanReceipt(ctx context.Context, req *connect.Request[api.ScanReceiptRequest]) (*connect.Response[api.ScanReceiptResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}

	contentType, data, err := receipt.DecodeImage(req.Msg.Image)
	if err != nil {
		metrics.ObserveScan(metrics.ScanRejected, 0)
		s.logger.Warn("ScanReceipt rejected", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if !s.limiter.Allow(userID) {
		metrics.ObserveScan(metrics.ScanRateLimited, 0)
		s.logger.Warn("ScanReceipt rate limited", "user_id", userID)
		return nil, connect.NewError(connect.CodeResourceExhausted, errScanRateLimited)
	}

	if s.archive != nil {
		key, err := s.archive.Store(ctx, userID, contentType, data)
		if err != nil {
			s.logger.Error("Failed to archive receipt", "user_id", userID, "error", err)
		} else {
			s.logger.Debug("Receipt archived", "user_id", userID, "key", key)
		}
	}

	raw, err := s.extractor.Extract(ctx, req.Msg.Image)
	if err != nil {
		metrics.ObserveScan(metrics.ScanGatewayErr, 0)
		s.logger.Error("ScanReceipt gateway call failed", "user_id", userID, "error", err)
		if errors.Is(err, receipt.ErrGatewayNotConfigured) {
			return nil, connect.NewError(connect.CodeUnimplemented, err)
		}
		return nil, connect.NewError(connect.CodeUnavailable, errScanFailed)
	}

	items := receipt.Sanitize(raw)
	metrics.ObserveScan(metrics.ScanOK, len(items))

	resp := &api.ScanReceiptResponse{Items: make([]api.ReceiptItem, len(items))}
	for i, item := range items {
		resp.Items[i] = api.ReceiptItem{Name: item.Name, Price: item.Price, Quantity: item.Quantity}
		s.logger.Debug("Receipt item detected", "name", item.Name, "price", item.Price, "quantity", item.Quantity)
	}

	s.logger.Info("Receipt scanned", "user_id", userID, "items", len(items))
	return connect.NewResponse(resp), nil
}
