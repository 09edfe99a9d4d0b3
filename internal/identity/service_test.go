package identity

import (
	"context"
	"testing"
	"time"

	"github.com/danielmoraes/lecto-backend/pkg/config"
	"github.com/danielmoraes/lecto-backend/pkg/db/models"
	"github.com/danielmoraes/lecto-backend/pkg/enums"
	"github.com/danielmoraes/lecto-backend/pkg/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupIdentityTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  name TEXT NOT NULL,
  document TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_from_checkout INTEGER NOT NULL DEFAULT 0,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  buyer_email TEXT NOT NULL,
  buyer_name TEXT NOT NULL,
  buyer_document TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT NOT NULL,
  charge_id TEXT UNIQUE,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'BRL',
  entitlements_pending INTEGER NOT NULL DEFAULT 0,
  pix_payload TEXT,
  pix_expires_at DATETIME,
  boleto_line TEXT,
  boleto_url TEXT,
  boleto_due_date DATETIME,
  completed_at DATETIME,
  canceled_at DATETIME,
  cancel_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(orders).Error)
	return db
}

type dbTxRunner struct {
	db *gorm.DB
}

func (r dbTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(r.db)
}

type captureOutbox struct {
	events []outbox.DomainEvent
}

func (c *captureOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

type captureSessions struct {
	userID string
	token  string
}

func (c *captureSessions) StoreSessionToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	c.userID = userID
	c.token = token
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "lecto-test", ExpirationMinutes: 30}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{ArgonMemoryKB: 8 * 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
}

func seedGuestOrder(t *testing.T, db *gorm.DB, email string) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:            uuid.New(),
		BuyerEmail:    email,
		BuyerName:     "Comprador",
		BuyerDocument: "12345678909",
		Status:        enums.OrderStatusProcessing,
		PaymentMethod: enums.PaymentMethodPix,
		AmountCents:   5990,
		Currency:      "BRL",
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func newIdentityService(t *testing.T, db *gorm.DB, pub *captureOutbox, sessions *captureSessions) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), dbTxRunner{db: db}, pub, sessions, testJWTConfig(), testPasswordConfig(), nil)
	require.NoError(t, err)
	return svc
}

func TestElevateGuestCreatesAccount(t *testing.T) {
	db := setupIdentityTestDB(t)
	pub := &captureOutbox{}
	sessions := &captureSessions{}
	svc := newIdentityService(t, db, pub, sessions)
	ctx := context.Background()

	order := seedGuestOrder(t, db, "novo@example.com")

	result, err := svc.ElevateGuest(ctx, ElevateInput{
		OrderID:  order.ID,
		Email:    "Novo@Example.com",
		Name:     "Novo Comprador",
		Document: "12345678909",
	})
	require.NoError(t, err)
	assert.True(t, result.AccountCreated)
	assert.NotEmpty(t, result.SessionToken)

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "novo@example.com").Error)
	assert.True(t, user.CreatedFromCheckout)
	assert.NotEmpty(t, user.PasswordHash)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	require.NotNil(t, reloaded.UserID)
	assert.Equal(t, user.ID, *reloaded.UserID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, enums.EventGuestAccountLinked, pub.events[0].EventType)
	assert.Equal(t, user.ID.String(), sessions.userID)
}

func TestElevateGuestReusesExistingAccount(t *testing.T) {
	db := setupIdentityTestDB(t)
	pub := &captureOutbox{}
	svc := newIdentityService(t, db, pub, &captureSessions{})
	ctx := context.Background()

	existing := &models.User{
		ID:           uuid.New(),
		Email:        "cliente@example.com",
		PasswordHash: "argon2id$existing",
		Name:         "Cliente Antigo",
		IsActive:     true,
	}
	require.NoError(t, db.Create(existing).Error)
	order := seedGuestOrder(t, db, "cliente@example.com")

	result, err := svc.ElevateGuest(ctx, ElevateInput{OrderID: order.ID, Email: "cliente@example.com", Name: "Cliente"})
	require.NoError(t, err)
	assert.False(t, result.AccountCreated)
	assert.Equal(t, existing.ID, result.UserID)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	require.NotNil(t, reloaded.UserID)
	assert.Equal(t, existing.ID, *reloaded.UserID)
}

func TestElevateGuestDoesNotRebindOwnedOrder(t *testing.T) {
	db := setupIdentityTestDB(t)
	svc := newIdentityService(t, db, &captureOutbox{}, &captureSessions{})
	ctx := context.Background()

	owner := uuid.New()
	order := seedGuestOrder(t, db, "dona@example.com")
	require.NoError(t, db.Model(order).Update("user_id", owner).Error)

	_, err := svc.ElevateGuest(ctx, ElevateInput{OrderID: order.ID, Email: "dona@example.com", Name: "Dona"})
	require.NoError(t, err)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	require.NotNil(t, reloaded.UserID)
	assert.Equal(t, owner, *reloaded.UserID)
}

func TestElevateGuestValidatesInput(t *testing.T) {
	db := setupIdentityTestDB(t)
	svc := newIdentityService(t, db, &captureOutbox{}, &captureSessions{})

	_, err := svc.ElevateGuest(context.Background(), ElevateInput{Email: "sem-ordem@example.com"})
	require.Error(t, err)

	_, err = svc.ElevateGuest(context.Background(), ElevateInput{OrderID: uuid.New()})
	require.Error(t, err)
}
