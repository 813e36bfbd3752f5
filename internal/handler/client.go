package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/segyhp/loan-settlement/internal/domain"
	"github.com/segyhp/loan-settlement/pkg/response"
)

// maxDocumentSize bounds a single uploaded file
const maxDocumentSize = 10 << 20

const documentField = "file"

type ClientService interface {
	Register(ctx context.Context, actor domain.Actor, request *domain.RegisterClientRequest, doc *domain.Document) (*domain.Client, error)
	Get(ctx context.Context, actor domain.Actor, clientID uuid.UUID) (*domain.Client, error)
	List(ctx context.Context, actor domain.Actor) ([]*domain.Client, error)
	AttachDocument(ctx context.Context, actor domain.Actor, clientID uuid.UUID, doc domain.Document) (*domain.Client, error)
	UploadDocument(ctx context.Context, actor domain.Actor, doc domain.Document) (*domain.DocumentResponse, error)
}

type ClientHandler struct {
	service   ClientService
	validator *validator.Validate
	log       *zap.Logger
}

func NewClientHandler(service ClientService, log *zap.Logger) *ClientHandler {
	return &ClientHandler{
		service:   service,
		validator: NewValidator(),
		log:       log,
	}
}

// Register handles POST /clients. Accepts a JSON body, or a multipart form
// with the same field names plus an optional identity document in "file".
func (h *ClientHandler) Register(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var (
		request domain.RegisterClientRequest
		doc     *domain.Document
	)

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize+1<<20)
		if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
			response.BadRequest(w, "Invalid multipart form", err)
			return
		}
		request = registerRequestFromForm(r)

		d, err := readDocument(r, documentField)
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			response.BadRequest(w, "Invalid document", err)
			return
		default:
			doc = d
		}
	} else if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(request); err != nil {
		response.BadRequest(w, validationMessage(err), nil)
		return
	}

	client, err := h.service.Register(r.Context(), actor, &request, doc)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	response.Created(w, client)
}

// List handles GET /clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	clients, err := h.service.List(r.Context(), actor)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	response.Success(w, clients)
}

// Get handles GET /clients/{clientId}
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, clientID, ok := clientRequest(w, r)
	if !ok {
		return
	}

	client, err := h.service.Get(r.Context(), actor, clientID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	response.Success(w, client)
}

// AttachDocument handles POST /clients/{clientId}/documents
func (h *ClientHandler) AttachDocument(w http.ResponseWriter, r *http.Request) {
	actor, clientID, ok := clientRequest(w, r)
	if !ok {
		return
	}

	doc, ok := h.requireDocument(w, r)
	if !ok {
		return
	}

	client, err := h.service.AttachDocument(r.Context(), actor, clientID, *doc)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	response.Success(w, client)
}

// UploadDocument handles POST /documents
func (h *ClientHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	doc, ok := h.requireDocument(w, r)
	if !ok {
		return
	}

	uploaded, err := h.service.UploadDocument(r.Context(), actor, *doc)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	response.Created(w, uploaded)
}

func (h *ClientHandler) requireDocument(w http.ResponseWriter, r *http.Request) (*domain.Document, bool) {
	if !isMultipart(r) {
		response.BadRequest(w, "Expected a multipart/form-data upload", nil)
		return nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize+1<<20)
	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		response.BadRequest(w, "Invalid multipart form", err)
		return nil, false
	}

	doc, err := readDocument(r, documentField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			response.BadRequest(w, "file is required", nil)
		} else {
			response.BadRequest(w, "Invalid document", err)
		}
		return nil, false
	}

	return doc, true
}

func clientRequest(w http.ResponseWriter, r *http.Request) (domain.Actor, uuid.UUID, bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return domain.Actor{}, uuid.Nil, false
	}

	clientID, err := uuid.Parse(mux.Vars(r)["clientId"])
	if err != nil {
		response.BadRequest(w, "clientId must be a UUID", nil)
		return domain.Actor{}, uuid.Nil, false
	}

	return actor, clientID, true
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func registerRequestFromForm(r *http.Request) domain.RegisterClientRequest {
	optional := func(key string) *string {
		v := strings.TrimSpace(r.FormValue(key))
		if v == "" {
			return nil
		}
		return &v
	}

	return domain.RegisterClientRequest{
		Name:             r.FormValue("name"),
		TaxID:            r.FormValue("tax_id"),
		Phone:            r.FormValue("phone"),
		Email:            optional("email"),
		RG:               optional("rg"),
		Address:          optional("address"),
		ReferenceContact: optional("reference_contact"),
	}
}

// readDocument loads a form file into memory. The form must already be parsed.
func readDocument(r *http.Request, field string) (*domain.Document, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDocumentSize {
		return nil, errors.New("document exceeds 10MB")
	}

	return &domain.Document{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
