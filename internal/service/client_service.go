package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/segyhp/loan-settlement/internal/domain"
	"github.com/segyhp/loan-settlement/internal/repository"
	"github.com/segyhp/loan-settlement/internal/storage"
	customError "github.com/segyhp/loan-settlement/pkg/errors"
	"github.com/segyhp/loan-settlement/pkg/utils"
)

const proofOwnerPrefix = "proof"

type ClientService struct {
	clients repository.ClientRepository
	store   storage.DocumentStore
	log     *zap.Logger
	now     func() time.Time
}

func NewClientService(clients repository.ClientRepository, store storage.DocumentStore, log *zap.Logger) *ClientService {
	return &ClientService{
		clients: clients,
		store:   store,
		log:     log,
		now:     time.Now,
	}
}

// Register validates and stores a new client. Tax id and phone are kept
// digits-only; doc, when given, is uploaded first and linked as doc_url.
func (s *ClientService) Register(ctx context.Context, actor domain.Actor, request *domain.RegisterClientRequest, doc *domain.Document) (*domain.Client, error) {
	name := strings.TrimSpace(request.Name)
	if name == "" {
		return nil, customError.WrapInvalidInput("name is required")
	}

	taxID, ok := utils.NormalizeTaxID(request.TaxID)
	if !ok {
		return nil, customError.WrapInvalidTaxID(request.TaxID)
	}

	phone, ok := utils.NormalizeMobile(request.Phone)
	if !ok {
		return nil, customError.WrapInvalidPhone(request.Phone)
	}

	now := s.now()
	client := &domain.Client{
		ID:               uuid.New(),
		Name:             name,
		TaxID:            taxID,
		Phone:            phone,
		Email:            trimmed(request.Email),
		RG:               trimmed(request.RG),
		Address:          trimmed(request.Address),
		ReferenceContact: trimmed(request.ReferenceContact),
		Reputation:       domain.ReputationNeutral,
		OwnerID:          actor.UserID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if doc != nil {
		url, err := s.upload(ctx, name, *doc)
		if err != nil {
			return nil, err
		}
		client.DocURL = &url
	}

	if err := s.clients.Create(ctx, client); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, customError.WrapClientAlreadyExists(taxID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	s.log.Info("Client registered",
		zap.String("client_id", client.ID.String()),
		zap.String("owner_id", client.OwnerID),
		zap.Bool("has_document", client.DocURL != nil),
	)

	return client, nil
}

func (s *ClientService) Get(ctx context.Context, actor domain.Actor, clientID uuid.UUID) (*domain.Client, error) {
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapClientNotFound(clientID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	if !visible(actor, client.OwnerID) {
		return nil, customError.WrapClientNotFound(clientID.String())
	}
	return client, nil
}

func (s *ClientService) List(ctx context.Context, actor domain.Actor) ([]*domain.Client, error) {
	clients, err := s.clients.List(ctx, actor.OwnerScope())
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return clients, nil
}

// AttachDocument uploads doc and records its URL on the client
func (s *ClientService) AttachDocument(ctx context.Context, actor domain.Actor, clientID uuid.UUID, doc domain.Document) (*domain.Client, error) {
	client, err := s.Get(ctx, actor, clientID)
	if err != nil {
		return nil, err
	}

	url, err := s.upload(ctx, client.Name, doc)
	if err != nil {
		return nil, err
	}

	if err := s.clients.UpdateDocument(ctx, client.ID, url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapClientNotFound(clientID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	client.DocURL = &url
	return client, nil
}

// UploadDocument stores a standalone document, typically a payment proof
func (s *ClientService) UploadDocument(ctx context.Context, actor domain.Actor, doc domain.Document) (*domain.DocumentResponse, error) {
	url, err := s.upload(ctx, proofOwnerPrefix+"_"+actor.UserID, doc)
	if err != nil {
		return nil, err
	}
	return &domain.DocumentResponse{URL: url}, nil
}

func (s *ClientService) upload(ctx context.Context, owner string, doc domain.Document) (string, error) {
	if len(doc.Data) == 0 {
		return "", customError.WrapInvalidInput("document is empty")
	}

	url, err := s.store.Upload(ctx, owner, doc)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return "", customError.WrapInvalidInput("document must be a PDF, PNG or JPG file")
		}
		s.log.Error("Document upload failed", zap.String("document", doc.Name), zap.Error(err))
		return "", customError.WrapStorageError(err)
	}
	return url, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
