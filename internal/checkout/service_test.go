package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/danielmoraes/lecto-backend/internal/catalog"
	"github.com/danielmoraes/lecto-backend/internal/gateway"
	"github.com/danielmoraes/lecto-backend/internal/identity"
	"github.com/danielmoraes/lecto-backend/internal/orders"
	"github.com/danielmoraes/lecto-backend/pkg/asaas"
	"github.com/danielmoraes/lecto-backend/pkg/db/models"
	"github.com/danielmoraes/lecto-backend/pkg/enums"
	pkgerrors "github.com/danielmoraes/lecto-backend/pkg/errors"
	"github.com/danielmoraes/lecto-backend/pkg/outbox"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOrdersRepo struct {
	created *models.Order
	items   []models.OrderItem
	updates map[string]any
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	s.created = order
	return order, nil
}

func (s *stubOrdersRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	s.items = items
	return nil
}

func (s *stubOrdersRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindOrderWithItems(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.created == nil || s.created.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.created, nil
}

func (s *stubOrdersRepo) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindOrderByChargeID(ctx context.Context, chargeID string) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	return s.items, nil
}

func (s *stubOrdersRepo) ListStatusEvents(ctx context.Context, orderID uuid.UUID) ([]models.StatusEvent, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) AppendStatusEvent(ctx context.Context, event *models.StatusEvent) error {
	panic("not implemented")
}

func (s *stubOrdersRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	s.updates = updates
	return nil
}

func (s *stubOrdersRepo) FindUnsettledBefore(ctx context.Context, method enums.PaymentMethod, cutoff time.Time, limit int) ([]models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindEntitlementsPending(ctx context.Context, limit int) ([]models.Order, error) {
	panic("not implemented")
}

type stubOrdersService struct {
	inputs []orders.TransitionInput
}

func (s *stubOrdersService) Transition(ctx context.Context, input orders.TransitionInput) (*orders.TransitionResult, error) {
	s.inputs = append(s.inputs, input)
	order := &models.Order{ID: input.OrderID, Status: input.Target}
	return &orders.TransitionResult{Applied: true, Order: order}, nil
}

func (s *stubOrdersService) ApplyTransition(ctx context.Context, tx *gorm.DB, input orders.TransitionInput) (*orders.TransitionResult, error) {
	panic("not implemented")
}

func (s *stubOrdersService) GetOrder(ctx context.Context, orderID uuid.UUID) (*orders.OrderDetail, error) {
	panic("not implemented")
}

type stubCatalog struct {
	items []catalog.PricedItem
}

func (s *stubCatalog) PriceItems(ctx context.Context, productIDs []uuid.UUID) ([]catalog.PricedItem, int64, error) {
	var total int64
	for _, item := range s.items {
		total += item.UnitPriceCents
	}
	return s.items, total, nil
}

func (s *stubCatalog) CurrentPrice(ctx context.Context, productID uuid.UUID) (int64, error) {
	panic("not implemented")
}

func (s *stubCatalog) Exists(ctx context.Context, productID uuid.UUID) (bool, error) {
	panic("not implemented")
}

type stubGateway struct {
	charge func(req gateway.ChargeRequest) (*gateway.ChargeResponse, error)
}

func (s *stubGateway) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResponse, error) {
	return s.charge(req)
}

func (s *stubGateway) Classify(event *asaas.WebhookEvent) (*gateway.Classification, error) {
	panic("not implemented")
}

func (s *stubGateway) PollStatus(ctx context.Context, chargeID string) (*gateway.Classification, error) {
	panic("not implemented")
}

func (s *stubGateway) VerifyWebhookToken(token string) bool { return true }

type stubIdentity struct {
	result *identity.ElevateResult
	err    error
	calls  int
}

func (s *stubIdentity) ElevateGuest(ctx context.Context, input identity.ElevateInput) (*identity.ElevateResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type checkoutDeps struct {
	repo     *stubOrdersRepo
	svc      *stubOrdersService
	catalog  *stubCatalog
	gateway  *stubGateway
	identity *stubIdentity
	outbox   *stubOutbox
}

func newCheckoutService(t *testing.T, deps checkoutDeps) Service {
	t.Helper()
	if deps.repo == nil {
		deps.repo = &stubOrdersRepo{}
	}
	if deps.svc == nil {
		deps.svc = &stubOrdersService{}
	}
	if deps.catalog == nil {
		deps.catalog = &stubCatalog{items: []catalog.PricedItem{
			{ProductID: uuid.New(), Kind: enums.ProductKindCourse, Title: "Curso de Go", UnitPriceCents: 19900},
		}}
	}
	if deps.identity == nil {
		deps.identity = &stubIdentity{result: &identity.ElevateResult{UserID: uuid.New(), SessionToken: "jwt-token", AccountCreated: true}}
	}
	if deps.outbox == nil {
		deps.outbox = &stubOutbox{}
	}
	svc, err := NewService(stubTxRunner{}, deps.repo, deps.svc, deps.catalog, deps.gateway, deps.identity, deps.outbox, nil)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func guestInput(method enums.PaymentMethod, card *gateway.CardDetails) CreateInput {
	return CreateInput{
		Email:         "guest@example.com",
		Name:          "Convidado",
		Document:      "12345678909",
		PaymentMethod: method,
		ProductIDs:    []uuid.UUID{uuid.New()},
		Card:          card,
	}
}

func testCard() *gateway.CardDetails {
	return &gateway.CardDetails{
		HolderName:  "GUEST NAME",
		Number:      "4111111111111111",
		ExpiryMonth: "12",
		ExpiryYear:  "2030",
		CCV:         "123",
	}
}

func TestCreateCardPaidCompletesOrder(t *testing.T) {
	repo := &stubOrdersRepo{}
	ordersSvc := &stubOrdersService{}
	gw := &stubGateway{charge: func(req gateway.ChargeRequest) (*gateway.ChargeResponse, error) {
		return &gateway.ChargeResponse{ChargeID: "pay_1", Outcome: enums.PaymentOutcomePaid, GatewayStatus: asaas.StatusConfirmed}, nil
	}}
	idSvc := &stubIdentity{result: &identity.ElevateResult{UserID: uuid.New(), SessionToken: "jwt-token"}}
	svc := newCheckoutService(t, checkoutDeps{repo: repo, svc: ordersSvc, gateway: gw, identity: idSvc})

	result, err := svc.Create(context.Background(), guestInput(enums.PaymentMethodCreditCard, testCard()))
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.Status != enums.OrderStatusCompleted {
		t.Fatalf("expected completed got %s", result.Status)
	}
	if result.Card == nil || result.Card.Outcome != enums.PaymentOutcomePaid {
		t.Fatalf("unexpected card result %+v", result.Card)
	}
	if result.Pix != nil || result.Boleto != nil {
		t.Fatal("card checkout must not carry async instructions")
	}
	if result.SessionToken != "jwt-token" {
		t.Fatalf("expected session token, got %q", result.SessionToken)
	}
	if len(ordersSvc.inputs) != 1 || ordersSvc.inputs[0].Source != enums.StatusEventSourceSync {
		t.Fatalf("expected one sync transition, got %+v", ordersSvc.inputs)
	}
	if repo.created == nil || repo.created.AmountCents != 19900 {
		t.Fatalf("order not persisted with catalog total: %+v", repo.created)
	}
	if len(repo.items) != 1 {
		t.Fatalf("expected snapshot items, got %d", len(repo.items))
	}
}

func TestCreateCardDeclinedCancelsOrder(t *testing.T) {
	ordersSvc := &stubOrdersService{}
	outboxPub := &stubOutbox{}
	gw := &stubGateway{charge: func(req gateway.ChargeRequest) (*gateway.ChargeResponse, error) {
		return nil, pkgerrors.New(pkgerrors.CodePaymentDeclined, "card declined")
	}}
	svc := newCheckoutService(t, checkoutDeps{svc: ordersSvc, gateway: gw, outbox: outboxPub})

	_, err := svc.Create(context.Background(), guestInput(enums.PaymentMethodCreditCard, testCard()))
	if err == nil {
		t.Fatal("expected decline error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePaymentDeclined {
		t.Fatalf("expected decline code, got %v", err)
	}
	if len(ordersSvc.inputs) != 1 || ordersSvc.inputs[0].Target != enums.OrderStatusCanceled {
		t.Fatalf("expected cancel transition, got %+v", ordersSvc.inputs)
	}
	var declinedEvents int
	for _, event := range outboxPub.events {
		if event.EventType == enums.EventPaymentDeclined {
			declinedEvents++
		}
	}
	if declinedEvents != 1 {
		t.Fatalf("expected one declined event, got %d", declinedEvents)
	}
}

func TestCreatePixLeavesOrderPending(t *testing.T) {
	repo := &stubOrdersRepo{}
	ordersSvc := &stubOrdersService{}
	expires := time.Now().UTC().Add(30 * time.Minute)
	gw := &stubGateway{charge: func(req gateway.ChargeRequest) (*gateway.ChargeResponse, error) {
		return &gateway.ChargeResponse{
			ChargeID:      "pay_pix",
			Outcome:       enums.PaymentOutcomePending,
			GatewayStatus: asaas.StatusPending,
			Pix:           &gateway.PixInstructions{Payload: "00020126", EncodedImage: "aW1n", ExpiresAt: &expires},
		}, nil
	}}
	svc := newCheckoutService(t, checkoutDeps{repo: repo, svc: ordersSvc, gateway: gw})

	result, err := svc.Create(context.Background(), guestInput(enums.PaymentMethodPix, nil))
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.Status != enums.OrderStatusPending {
		t.Fatalf("async checkout must stay pending, got %s", result.Status)
	}
	if result.Pix == nil || result.Pix.Payload == "" {
		t.Fatalf("missing pix instructions %+v", result.Pix)
	}
	if len(ordersSvc.inputs) != 0 {
		t.Fatalf("async checkout must not transition, got %+v", ordersSvc.inputs)
	}
	if repo.updates["charge_id"] != "pay_pix" {
		t.Fatalf("charge id not stored: %+v", repo.updates)
	}
	if repo.updates["pix_payload"] != "00020126" {
		t.Fatalf("pix payload not stored: %+v", repo.updates)
	}
}

func TestCreateGatewayOutageKeepsOrderPending(t *testing.T) {
	repo := &stubOrdersRepo{}
	gw := &stubGateway{charge: func(req gateway.ChargeRequest) (*gateway.ChargeResponse, error) {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway unavailable")
	}}
	svc := newCheckoutService(t, checkoutDeps{repo: repo, gateway: gw})

	_, err := svc.Create(context.Background(), guestInput(enums.PaymentMethodBoleto, nil))
	if err == nil {
		t.Fatal("expected dependency error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %v", err)
	}
	if repo.created == nil {
		t.Fatal("order must persist before the gateway call")
	}
	if repo.updates != nil {
		t.Fatalf("no charge details should be stored: %+v", repo.updates)
	}
}

func TestCreateIdentityFailureKeepsResult(t *testing.T) {
	gw := &stubGateway{charge: func(req gateway.ChargeRequest) (*gateway.ChargeResponse, error) {
		return &gateway.ChargeResponse{
			ChargeID:      "pay_ok",
			Outcome:       enums.PaymentOutcomePending,
			GatewayStatus: asaas.StatusPending,
			Pix:           &gateway.PixInstructions{Payload: "00020126", EncodedImage: "aW1n"},
		}, nil
	}}
	idSvc := &stubIdentity{err: pkgerrors.New(pkgerrors.CodeDependency, "users table unavailable")}
	svc := newCheckoutService(t, checkoutDeps{gateway: gw, identity: idSvc})

	result, err := svc.Create(context.Background(), guestInput(enums.PaymentMethodPix, nil))
	if err != nil {
		t.Fatalf("identity failure must not fail checkout, got %v", err)
	}
	if result.IdentityError == "" {
		t.Fatal("expected identity error reported in result")
	}
	if result.Pix == nil {
		t.Fatal("payment instructions must survive identity failure")
	}
	if result.SessionToken != "" {
		t.Fatal("no session token on identity failure")
	}
}

func TestCreateAuthenticatedSkipsElevation(t *testing.T) {
	userID := uuid.New()
	idSvc := &stubIdentity{}
	gw := &stubGateway{charge: func(req gateway.ChargeRequest) (*gateway.ChargeResponse, error) {
		return &gateway.ChargeResponse{
			ChargeID:      "pay_auth",
			Outcome:       enums.PaymentOutcomePending,
			GatewayStatus: asaas.StatusPending,
			Boleto:        &gateway.BoletoInstructions{DigitableLine: "34191", SlipURL: "https://example.com/b", DueDate: time.Now().UTC()},
		}, nil
	}}
	svc := newCheckoutService(t, checkoutDeps{gateway: gw, identity: idSvc})

	input := guestInput(enums.PaymentMethodBoleto, nil)
	input.UserID = &userID

	result, err := svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if idSvc.calls != 0 {
		t.Fatal("authenticated checkout must not elevate")
	}
	if result.Boleto == nil {
		t.Fatal("missing boleto instructions")
	}
}

func TestRetryChargeGuards(t *testing.T) {
	chargeID := "pay_existing"
	repo := &stubOrdersRepo{created: &models.Order{
		ID:            uuid.New(),
		Status:        enums.OrderStatusPending,
		PaymentMethod: enums.PaymentMethodPix,
		ChargeID:      &chargeID,
	}}
	svc := newCheckoutService(t, checkoutDeps{repo: repo, gateway: &stubGateway{}})

	_, err := svc.RetryCharge(context.Background(), repo.created.ID)
	if err == nil {
		t.Fatal("expected conflict for charged order")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRetryChargeReissuesCharge(t *testing.T) {
	repo := &stubOrdersRepo{created: &models.Order{
		ID:            uuid.New(),
		Status:        enums.OrderStatusPending,
		PaymentMethod: enums.PaymentMethodPix,
		BuyerEmail:    "guest@example.com",
		BuyerName:     "Convidado",
		BuyerDocument: "12345678909",
		AmountCents:   19900,
		Currency:      "BRL",
	}}
	gw := &stubGateway{charge: func(req gateway.ChargeRequest) (*gateway.ChargeResponse, error) {
		return &gateway.ChargeResponse{
			ChargeID:      "pay_retry",
			Outcome:       enums.PaymentOutcomePending,
			GatewayStatus: asaas.StatusPending,
			Pix:           &gateway.PixInstructions{Payload: "00020126", EncodedImage: "aW1n"},
		}, nil
	}}
	svc := newCheckoutService(t, checkoutDeps{repo: repo, gateway: gw})

	result, err := svc.RetryCharge(context.Background(), repo.created.ID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.Pix == nil {
		t.Fatal("missing pix instructions on retry")
	}
	if repo.updates["charge_id"] != "pay_retry" {
		t.Fatalf("charge id not stored on retry: %+v", repo.updates)
	}
}
