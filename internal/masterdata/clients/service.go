package clients

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/track-invoice/track-invoice/internal/auth"
	mdshared "github.com/track-invoice/track-invoice/internal/masterdata/shared"
	"github.com/track-invoice/track-invoice/internal/shared"
)

type Service struct {
	repo      Repository
	validator *validator.Validate
	hash      func(string) (string, error)
	logger    *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, validator: shared.NewValidator(), hash: auth.HashPassword, logger: logger}
}

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Client, int, error) {
	return s.repo.List(ctx, filters.Normalize())
}

func (s *Service) Get(ctx context.Context, id int64) (Client, error) {
	if id <= 0 {
		return Client{}, fmt.Errorf("%w: invalid client id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// ForUser resolves the client owning the portal login userID.
func (s *Service) ForUser(ctx context.Context, userID int64) (Client, error) {
	return s.repo.FindByUserID(ctx, userID)
}

// Create inserts the client and, when a username is given, its portal
// login in the same transaction.
func (s *Service) Create(ctx context.Context, req Request) (Client, error) {
	if err := s.validate(&req); err != nil {
		return Client{}, err
	}
	if req.Username != "" && req.Password == "" {
		return Client{}, fmt.Errorf("%w: password is required for a new login", shared.ErrValidation)
	}
	hash, err := s.hashOptional(req.Password)
	if err != nil {
		return Client{}, err
	}

	var created Client
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		c := fromRequest(req)
		if req.Username != "" {
			userID, err := tx.CreateUser(ctx, req.Username, hash)
			if err != nil {
				return err
			}
			c.UserID = &userID
			c.Username = req.Username
		}
		created, err = tx.Create(ctx, c)
		if err != nil {
			return err
		}
		created.Username = c.Username
		return tx.RecordAudit(ctx, shared.NewAuditLog(ctx, "client.create", "client", created.ID,
			map[string]any{"company_name": created.CompanyName, "login": created.HasLogin()}))
	})
	if err != nil {
		return Client{}, err
	}
	s.logger.Info("client created", slog.Int64("client_id", created.ID))
	return created, nil
}

// Update replaces the client fields and upserts its login: an existing
// login is renamed (password kept unless supplied), otherwise a new one
// is created when a username is given.
func (s *Service) Update(ctx context.Context, id int64, req Request) (Client, error) {
	if id <= 0 {
		return Client{}, fmt.Errorf("%w: invalid client id", shared.ErrValidation)
	}
	if err := s.validate(&req); err != nil {
		return Client{}, err
	}
	hash, err := s.hashOptional(req.Password)
	if err != nil {
		return Client{}, err
	}

	var updated Client
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next := fromRequest(req)
		next.ID = current.ID
		next.CreatedAt = current.CreatedAt
		next.UserID = current.UserID
		next.Username = current.Username

		switch {
		case req.Username == "":
		case current.HasLogin():
			if err := tx.UpdateUser(ctx, *current.UserID, req.Username, hash); err != nil {
				return err
			}
			next.Username = req.Username
		default:
			if hash == "" {
				return fmt.Errorf("%w: password is required for a new login", shared.ErrValidation)
			}
			userID, err := tx.CreateUser(ctx, req.Username, hash)
			if err != nil {
				return err
			}
			next.UserID = &userID
			next.Username = req.Username
		}

		if err := tx.Update(ctx, next); err != nil {
			return err
		}
		updated = next
		return tx.RecordAudit(ctx, shared.NewAuditLog(ctx, "client.update", "client", id, nil))
	})
	if err != nil {
		return Client{}, err
	}
	return updated, nil
}

// Delete removes an unreferenced client together with its login.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid client id", shared.ErrValidation)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		refs, err := tx.CountReferences(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: client %d still has %d quotation(s) or invoice(s)", shared.ErrConflict, id, refs)
		}
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		if current.HasLogin() {
			if err := tx.DeleteUser(ctx, *current.UserID); err != nil {
				return err
			}
		}
		return tx.RecordAudit(ctx, shared.NewAuditLog(ctx, "client.delete", "client", id, nil))
	})
}

func (s *Service) hashOptional(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	hash, err := s.hash(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func fromRequest(req Request) Client {
	return Client{
		CompanyName: req.CompanyName,
		PICName:     req.PICName,
		Email:       req.Email,
		Contact:     req.Contact,
		Address:     req.Address,
	}
}
