package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielmoraes/lecto-backend/pkg/auth"
	"github.com/danielmoraes/lecto-backend/pkg/config"
	"github.com/danielmoraes/lecto-backend/pkg/db/models"
	"github.com/danielmoraes/lecto-backend/pkg/enums"
	pkgerrors "github.com/danielmoraes/lecto-backend/pkg/errors"
	"github.com/danielmoraes/lecto-backend/pkg/logger"
	"github.com/danielmoraes/lecto-backend/pkg/outbox"
	"github.com/danielmoraes/lecto-backend/pkg/outbox/payloads"
	"github.com/danielmoraes/lecto-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const provisionalPasswordLength = 24

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type sessionStore interface {
	StoreSessionToken(ctx context.Context, userID, token string, ttl time.Duration) error
}

// ElevateInput carries the buyer details captured at checkout.
type ElevateInput struct {
	OrderID  uuid.UUID
	Email    string
	Name     string
	Document string
}

// ElevateResult reports the attached account and its session.
type ElevateResult struct {
	UserID         uuid.UUID
	SessionToken   string
	AccountCreated bool
}

// Service attaches accounts to guest orders.
type Service interface {
	ElevateGuest(ctx context.Context, input ElevateInput) (*ElevateResult, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	sessions sessionStore
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
	logg     *logger.Logger
}

// NewService builds an identity service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, sessions sessionStore, jwtCfg config.JWTConfig, pwCfg config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("identity repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outboxSvc,
		sessions: sessions,
		jwtCfg:   jwtCfg,
		pwCfg:    pwCfg,
		logg:     logg,
	}, nil
}

// ElevateGuest finds or creates the account for the buyer email and
// binds it to the order. Runs after the charge, so a failure here never
// touches the payment. Safe to retry: the lookup converges on the same
// account and the order bind guards against rebinding.
func (s *service) ElevateGuest(ctx context.Context, input ElevateInput) (*ElevateResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}

	var user *models.User
	var created bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindUserByEmail(ctx, email)
		switch {
		case err == nil:
			user = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			user, err = s.createCheckoutUser(ctx, repo, email, input)
			if err != nil {
				return err
			}
			created = true
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up account")
		}

		if err := repo.AttachUserToOrder(ctx, input.OrderID, user.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach account to order")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventGuestAccountLinked,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: &user.ID, Email: email},
			Data: payloads.GuestAccountLinkedEvent{
				OrderID: input.OrderID,
				UserID:  user.ID,
				Email:   email,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	token, err := s.mintSession(ctx, user)
	if err != nil {
		// The account is linked either way; the buyer can sign in with
		// a password reset if the session never reaches them.
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{"user_id": user.ID.String()})
			s.logg.Error(logCtx, "session mint failed after elevation", err)
		}
		token = ""
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":        input.OrderID.String(),
			"user_id":         user.ID.String(),
			"account_created": created,
		})
		s.logg.Info(logCtx, "guest account linked")
	}

	return &ElevateResult{UserID: user.ID, SessionToken: token, AccountCreated: created}, nil
}

func (s *service) createCheckoutUser(ctx context.Context, repo Repository, email string, input ElevateInput) (*models.User, error) {
	provisional, err := security.GenerateProvisionalPassword(provisionalPasswordLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate provisional password")
	}
	hash, err := security.HashPassword(provisional, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash provisional password")
	}

	user := &models.User{
		Email:               email,
		PasswordHash:        hash,
		Name:                strings.TrimSpace(input.Name),
		IsActive:            true,
		CreatedFromCheckout: true,
	}
	if doc := strings.TrimSpace(input.Document); doc != "" {
		user.Document = &doc
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, err := repo.CreateUser(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}
	return user, nil
}

func (s *service) mintSession(ctx context.Context, user *models.User) (string, error) {
	token, err := auth.MintAccessToken(s.jwtCfg, time.Now().UTC(), auth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		return "", err
	}
	if s.sessions != nil {
		ttl := time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute
		if err := s.sessions.StoreSessionToken(ctx, user.ID.String(), token, ttl); err != nil {
			return "", err
		}
	}
	return token, nil
}
