package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/segyhp/loan-settlement/internal/domain"
	"github.com/segyhp/loan-settlement/internal/mocks"
	"github.com/segyhp/loan-settlement/internal/repository"
	"github.com/segyhp/loan-settlement/internal/storage"
	customError "github.com/segyhp/loan-settlement/pkg/errors"
)

func newClientService() (*ClientService, *mocks.MockClientRepository, *mocks.MockDocumentStore) {
	clients := &mocks.MockClientRepository{}
	store := &mocks.MockDocumentStore{}
	return NewClientService(clients, store, zap.NewNop()), clients, store
}

func strPtr(s string) *string { return &s }

func TestRegister_NormalizesAndStartsNeutral(t *testing.T) {
	svc, clients, store := newClientService()

	clients.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Client) bool {
		return c.TaxID == "52998224725" &&
			c.Phone == "11987654321" &&
			c.Reputation == domain.ReputationNeutral &&
			c.OwnerID == employee.UserID &&
			c.Email == nil &&
			c.DocURL == nil
	})).Return(nil)

	client, err := svc.Register(context.Background(), employee, &domain.RegisterClientRequest{
		Name:    "  Maria Souza ",
		TaxID:   "529.982.247-25",
		Phone:   "+55 (11) 98765-4321",
		Email:   strPtr("   "),
		Address: strPtr("Rua A, 10"),
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "Maria Souza", client.Name)
	require.NotNil(t, client.Address)
	assert.Equal(t, "Rua A, 10", *client.Address)
	clients.AssertExpectations(t)
	store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_WithDocument(t *testing.T) {
	svc, clients, store := newClientService()
	doc := domain.Document{Name: "rg.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}
	url := "https://storage.googleapis.com/docs/Maria_1.pdf"

	store.On("Upload", mock.Anything, "Maria", doc).Return(url, nil)
	clients.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Client) bool {
		return c.DocURL != nil && *c.DocURL == url
	})).Return(nil)

	client, err := svc.Register(context.Background(), employee, &domain.RegisterClientRequest{
		Name: "Maria", TaxID: "11144477735", Phone: "21987654321",
	}, &doc)

	require.NoError(t, err)
	assert.Equal(t, url, *client.DocURL)
}

func TestRegister_Errors(t *testing.T) {
	valid := func() *domain.RegisterClientRequest {
		return &domain.RegisterClientRequest{Name: "Maria", TaxID: "52998224725", Phone: "11987654321"}
	}

	tests := []struct {
		name     string
		mutate   func(r *domain.RegisterClientRequest)
		doc      *domain.Document
		setup    func(clients *mocks.MockClientRepository, store *mocks.MockDocumentStore)
		wantCode string
	}{
		{
			name:     "blank name",
			mutate:   func(r *domain.RegisterClientRequest) { r.Name = "  " },
			wantCode: customError.ErrCodeInvalidInput,
		},
		{
			name:     "bad checksum",
			mutate:   func(r *domain.RegisterClientRequest) { r.TaxID = "52998224724" },
			wantCode: customError.ErrCodeInvalidTaxID,
		},
		{
			name:     "landline",
			mutate:   func(r *domain.RegisterClientRequest) { r.Phone = "1132654321" },
			wantCode: customError.ErrCodeInvalidPhone,
		},
		{
			name: "duplicate tax id",
			setup: func(clients *mocks.MockClientRepository, _ *mocks.MockDocumentStore) {
				clients.On("Create", mock.Anything, mock.Anything).
					Return(fmt.Errorf("%w: clients_tax_id_key", repository.ErrDuplicateKey))
			},
			wantCode: customError.ErrCodeClientAlreadyExists,
		},
		{
			name: "store down",
			setup: func(clients *mocks.MockClientRepository, _ *mocks.MockDocumentStore) {
				clients.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
			},
			wantCode: customError.ErrCodeDatabaseError,
		},
		{
			name: "unsupported document",
			doc:  &domain.Document{Name: "notes.txt", Data: []byte("x")},
			setup: func(_ *mocks.MockClientRepository, store *mocks.MockDocumentStore) {
				store.On("Upload", mock.Anything, mock.Anything, mock.Anything).
					Return("", fmt.Errorf("%w: notes.txt", storage.ErrUnsupportedType))
			},
			wantCode: customError.ErrCodeInvalidInput,
		},
		{
			name: "bucket unreachable",
			doc:  &domain.Document{Name: "rg.pdf", Data: []byte("x")},
			setup: func(_ *mocks.MockClientRepository, store *mocks.MockDocumentStore) {
				store.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("timeout"))
			},
			wantCode: customError.ErrCodeStorageError,
		},
		{
			name:     "empty document",
			doc:      &domain.Document{Name: "rg.pdf"},
			wantCode: customError.ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, clients, store := newClientService()
			if tt.setup != nil {
				tt.setup(clients, store)
			}
			req := valid()
			if tt.mutate != nil {
				tt.mutate(req)
			}

			_, err := svc.Register(context.Background(), employee, req, tt.doc)

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, customError.Code(err))
		})
	}
}

func TestClientService_GetAndList(t *testing.T) {
	svc, clients, _ := newClientService()
	mine := &domain.Client{ID: uuid.New(), OwnerID: employee.UserID}
	theirs := &domain.Client{ID: uuid.New(), OwnerID: "other"}

	clients.On("GetByID", mock.Anything, mine.ID).Return(mine, nil)
	clients.On("GetByID", mock.Anything, theirs.ID).Return(theirs, nil)
	clients.On("GetByID", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows)
	clients.On("List", mock.Anything, employee.UserID).Return([]*domain.Client{mine}, nil)
	clients.On("List", mock.Anything, "").Return([]*domain.Client{mine, theirs}, nil)

	got, err := svc.Get(context.Background(), employee, mine.ID)
	require.NoError(t, err)
	assert.Same(t, mine, got)

	_, err = svc.Get(context.Background(), employee, theirs.ID)
	assert.Equal(t, customError.ErrCodeClientNotFound, customError.Code(err))

	_, err = svc.Get(context.Background(), admin, theirs.ID)
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), admin, uuid.New())
	assert.Equal(t, customError.ErrCodeClientNotFound, customError.Code(err))

	list, err := svc.List(context.Background(), employee)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = svc.List(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAttachDocument(t *testing.T) {
	svc, clients, store := newClientService()
	client := &domain.Client{ID: uuid.New(), Name: "Maria Souza", OwnerID: employee.UserID}
	doc := domain.Document{Name: "cpf.png", Data: []byte{1, 2}}
	url := "https://storage.googleapis.com/docs/Maria_Souza_1.png"

	clients.On("GetByID", mock.Anything, client.ID).Return(client, nil)
	store.On("Upload", mock.Anything, "Maria Souza", doc).Return(url, nil)
	clients.On("UpdateDocument", mock.Anything, client.ID, url).Return(nil)

	got, err := svc.AttachDocument(context.Background(), employee, client.ID, doc)

	require.NoError(t, err)
	assert.Equal(t, url, *got.DocURL)
	clients.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestUploadDocument_UsesProofPrefix(t *testing.T) {
	svc, _, store := newClientService()
	doc := domain.Document{Name: "pix.jpg", Data: []byte{1}}

	store.On("Upload", mock.Anything, "proof_emp-1", doc).Return("/uploads/proof_emp-1_1.jpg", nil)

	resp, err := svc.UploadDocument(context.Background(), employee, doc)

	require.NoError(t, err)
	assert.Equal(t, "/uploads/proof_emp-1_1.jpg", resp.URL)
}
