package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitbill/internal/calculator"
	"github.com/mmynk/splitbill/internal/currency"
	"github.com/mmynk/splitbill/internal/draft"
	"github.com/mmynk/splitbill/internal/metrics"
	"github.com/mmynk/splitbill/internal/middleware"
	"github.com/mmynk/splitbill/internal/models"
	"github.com/mmynk/splitbill/internal/storage"
	"github.com/mmynk/splitbill/pkg/api"
	"github.com/mmynk/splitbill/pkg/api/apiconnect"
)

var _ apiconnect.BillServiceHandler = (*BillService)(nil)

var errAuthRequired = errors.New("authentication required")

// BillService implements the Connect BillService.
type BillService struct {
	store storage.BillStore
}

// NewBillService creates a new BillService with the given storage backend.
func NewBillService(store storage.BillStore) *BillService {
	return &BillService{store: store}
}

// replayed holds a request's draft together with the mapping between the
// client's participant keys and the draft's participant IDs.
type replayed struct {
	draft    *draft.Draft
	byClient map[string]string // client key -> draft ID
	byDraft  map[string]string // draft ID -> client key
}

// buildDraft replays a request into a draft. It does not enforce the
// participant count, so it can serve live recalculation as well as save.
func buildDraft(title, description string, items []api.Item, participants []api.Participant, charges api.Charges) (*replayed, error) {
	s := &replayed{
		draft:    draft.New(),
		byClient: make(map[string]string, len(participants)),
		byDraft:  make(map[string]string, len(participants)),
	}
	s.draft.SetTitle(title)
	s.draft.SetDescription(description)

	if err := s.draft.SetCharges(charges.Tax, charges.Service, charges.Tip); err != nil {
		return nil, err
	}

	for _, p := range participants {
		key := p.ID
		if key == "" {
			key = p.Name
		}
		if _, dup := s.byClient[key]; dup {
			return nil, fmt.Errorf("%w: %s", draft.ErrDuplicateParticipant, key)
		}
		added, err := s.draft.AddParticipant(p.Name)
		if err != nil {
			return nil, fmt.Errorf("participant %q: %w", p.Name, err)
		}
		s.byClient[key] = added.ID
		s.byDraft[added.ID] = key
	}

	for _, item := range items {
		assignTo := make([]string, 0, len(item.AssignedTo))
		for _, key := range item.AssignedTo {
			id, ok := s.byClient[key]
			if !ok {
				return nil, fmt.Errorf("item %q: %w: %s", item.Name, draft.ErrParticipantNotFound, key)
			}
			assignTo = append(assignTo, id)
		}
		if _, err := s.draft.AddItem(item.Name, item.Price, item.Quantity, item.Category, assignTo...); err != nil {
			return nil, fmt.Errorf("item %q: %w", item.Name, err)
		}
	}

	return s, nil
}

// toSplit converts a calculator result into its wire form, in participant order.
// keyOf maps a participant ID to the ID shown to the client.
func toSplit(res *calculator.Result, participants []models.Participant, keyOf func(string) string) *api.Split {
	split := &api.Split{
		Subtotal:            res.Subtotal,
		Tax:                 res.Tax,
		Service:             res.Service,
		Tip:                 res.Tip,
		AdditionalPerPerson: res.AdditionalPerPerson,
		Total:               res.Total,
		TotalDisplay:        currency.FormatRupiah(res.Total),
		Participants:        make([]api.ParticipantSplit, 0, len(participants)),
	}
	for _, p := range participants {
		ps := api.ParticipantSplit{
			ParticipantID: keyOf(p.ID),
			Name:          p.Name,
			Items:         []api.PersonItem{},
		}
		if s, ok := res.Splits[p.ID]; ok {
			ps.Subtotal = s.Subtotal
			ps.Additional = s.Additional
			ps.Total = s.Total
			for _, item := range s.Items {
				ps.Items = append(ps.Items, api.PersonItem{Name: item.Name, Amount: item.Amount})
			}
		}
		ps.Display = currency.FormatRupiah(ps.Total)
		split.Participants = append(split.Participants, ps)
	}
	return split
}

func identity(id string) string { return id }

// validationError maps draft validation failures to InvalidArgument and
// anything else to Internal.
func validationError(err error) *connect.Error {
	for _, target := range []error{
		draft.ErrEmptyTitle, draft.ErrEmptyName, draft.ErrNameTooLong,
		draft.ErrInvalidPrice, draft.ErrInvalidQuantity, draft.ErrNegativeCharge, draft.ErrInvalidCharge,
		draft.ErrDuplicateParticipant, draft.ErrTooManyParticipants, draft.ErrTooFewParticipants,
		draft.ErrNoItems, draft.ErrUnassignedItems, draft.ErrParticipantNotFound,
	} {
		if errors.Is(err, target) {
			return connect.NewError(connect.CodeInvalidArgument, err)
		}
	}
	return connect.NewError(connect.CodeInternal, err)
}

// CalculateSplit computes the split for the given bill contents without
// persisting anything. It is called after every edit, so it tolerates
// unassigned items and any participant count.
func (s *BillService) CalculateSplit(
	ctx context.Context,
	req *connect.Request[api.CalculateSplitRequest],
) (*connect.Response[api.CalculateSplitResponse], error) {
	sess, err := buildDraft("", "", req.Msg.Items, req.Msg.Participants, req.Msg.Charges)
	if err != nil {
		slog.Warn("CalculateSplit rejected", "error", err)
		return nil, validationError(err)
	}

	split := toSplit(sess.draft.Split(), sess.draft.Participants(), func(id string) string { return sess.byDraft[id] })
	slog.Debug("CalculateSplit", "items", len(req.Msg.Items), "participants", len(req.Msg.Participants), "total", split.TotalDisplay)

	return connect.NewResponse(&api.CalculateSplitResponse{Split: split}), nil
}

// SaveBill validates the bill as a finished draft and persists it for the caller.
func (s *BillService) SaveBill(
	ctx context.Context,
	req *connect.Request[api.SaveBillRequest],
) (*connect.Response[api.SaveBillResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}

	msg := req.Msg
	sess, err := buildDraft(msg.Title, msg.Description, msg.Items, msg.Participants, msg.Charges)
	if err != nil {
		slog.Warn("SaveBill rejected", "user_id", userID, "error", err)
		return nil, validationError(err)
	}
	if err := sess.draft.Next(); err != nil {
		slog.Warn("SaveBill rejected", "user_id", userID, "error", err)
		return nil, validationError(err)
	}
	bill, err := sess.draft.Finalize(userID)
	if err != nil {
		slog.Warn("SaveBill rejected", "user_id", userID, "error", err)
		return nil, validationError(err)
	}

	if err := s.store.CreateBill(ctx, bill); err != nil {
		slog.Error("SaveBill failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to save bill"))
	}
	metrics.ObserveBillSaved()

	slog.Info("Bill saved", "bill_id", bill.ID, "user_id", userID, "total", currency.FormatRupiah(bill.Total))

	return connect.NewResponse(&api.SaveBillResponse{
		BillID:    bill.ID,
		CreatedAt: api.NewTimestamp(bill.CreatedAt),
		Split:     toSplit(sess.draft.Split(), bill.Participants, identity),
	}), nil
}

// ownedBill loads a bill and checks that the caller saved it.
func (s *BillService) ownedBill(ctx context.Context, billID string) (*models.Bill, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}
	if billID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("bill_id required"))
	}

	bill, err := s.store.GetBill(ctx, billID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("bill not found"))
	}
	if err != nil {
		slog.Error("GetBill failed", "bill_id", billID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	if bill.UserID != userID {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("you can only access your own bills"))
	}
	return bill, nil
}

// GetBill returns a saved bill and its recomputed split.
func (s *BillService) GetBill(
	ctx context.Context,
	req *connect.Request[api.GetBillRequest],
) (*connect.Response[api.GetBillResponse], error) {
	bill, err := s.ownedBill(ctx, req.Msg.BillID)
	if err != nil {
		return nil, err
	}

	items := make([]calculator.Item, len(bill.Items))
	for i, item := range bill.Items {
		items[i] = calculator.Item{
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   item.Quantity,
			AssignedTo: item.AssignedTo,
		}
	}
	ids := make([]string, len(bill.Participants))
	for i, p := range bill.Participants {
		ids[i] = p.ID
	}
	res := calculator.ComputeSplit(items, ids, calculator.Charges{Tax: bill.Tax, Service: bill.Service, Tip: bill.Tip})

	return connect.NewResponse(&api.GetBillResponse{
		Bill:  toAPIBill(bill),
		Split: toSplit(res, bill.Participants, identity),
	}), nil
}

func toAPIBill(bill *models.Bill) *api.Bill {
	out := &api.Bill{
		ID:           bill.ID,
		Title:        bill.Title,
		Description:  bill.Description,
		Items:        make([]api.Item, len(bill.Items)),
		Participants: make([]api.Participant, len(bill.Participants)),
		Charges:      api.Charges{Tax: bill.Tax, Service: bill.Service, Tip: bill.Tip},
		Subtotal:     bill.Subtotal,
		Total:        bill.Total,
		CreatedAt:    api.NewTimestamp(bill.CreatedAt),
	}
	for i, item := range bill.Items {
		out.Items[i] = api.Item{
			ID:         item.ID,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   item.Quantity,
			Category:   item.Category,
			AssignedTo: append([]string{}, item.AssignedTo...),
		}
	}
	for i, p := range bill.Participants {
		out.Participants[i] = api.Participant{ID: p.ID, Name: p.Name, Amount: p.Amount}
	}
	return out
}

// ListBills returns the caller's bills, newest first.
func (s *BillService) ListBills(
	ctx context.Context,
	req *connect.Request[api.ListBillsRequest],
) (*connect.Response[api.ListBillsResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}

	summaries, err := s.store.ListBillsByUser(ctx, userID)
	if err != nil {
		slog.Error("ListBills failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	bills := make([]api.BillSummary, len(summaries))
	for i, b := range summaries {
		bills[i] = api.BillSummary{
			ID:               b.ID,
			Title:            b.Title,
			Description:      b.Description,
			Total:            b.Total,
			TotalDisplay:     currency.FormatRupiah(b.Total),
			ParticipantCount: b.ParticipantCount,
			CreatedAt:        api.NewTimestamp(b.CreatedAt),
		}
	}

	return connect.NewResponse(&api.ListBillsResponse{Bills: bills}), nil
}

// DeleteBill removes one of the caller's bills.
func (s *BillService) DeleteBill(
	ctx context.Context,
	req *connect.Request[api.DeleteBillRequest],
) (*connect.Response[api.DeleteBillResponse], error) {
	bill, err := s.ownedBill(ctx, req.Msg.BillID)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteBill(ctx, bill.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("bill not found"))
		}
		slog.Error("DeleteBill failed", "bill_id", bill.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Bill deleted", "bill_id", bill.ID, "user_id", bill.UserID)
	return connect.NewResponse(&api.DeleteBillResponse{}), nil
}
