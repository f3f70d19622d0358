package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/elearnhq/elearn/pkg/httputil"
	"github.com/elearnhq/elearn/pkg/middleware"
	"github.com/elearnhq/elearn/pkg/rbac"
	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxUploadBytes  = 5 << 20
)

// crud is the method set every resource service exposes.
type crud[T, C, U any] interface {
	Create(ctx context.Context, in C) (*T, error)
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context, p ListParams) ([]*T, error)
	Update(ctx context.Context, id string, in U) (*T, error)
	Delete(ctx context.Context, id string) error
}

// ownedRecord is implemented by rows that belong to one user.
type ownedRecord interface {
	Owner() string
}

// ownedInput is implemented by create inputs that carry the owner.
type ownedInput interface {
	setOwner(id string)
	owner() string
}

// resource wires one service to its REST routes.
type resource[T, C, U any] struct {
	name      rbac.Resource
	singular  string
	plural    string
	parentKey string
	svc       crud[T, C, U]
	// ownReads limits non-admin reads to the caller's own rows
	ownReads bool
	logger   *logrus.Logger
}

func (res *resource[T, C, U]) register(router *mux.Router, perms *rbac.PermissionMiddleware) {
	guard := perms.RequireResource(res.name)
	base := "/" + string(res.name)
	router.Handle(base, guard(http.HandlerFunc(res.create))).Methods(http.MethodPost)
	router.Handle(base, guard(http.HandlerFunc(res.list))).Methods(http.MethodGet)
	router.Handle(base+"/{id}", guard(http.HandlerFunc(res.get))).Methods(http.MethodGet)
	router.Handle(base+"/{id}", guard(http.HandlerFunc(res.update))).Methods(http.MethodPut)
	router.Handle(base+"/{id}", guard(http.HandlerFunc(res.remove))).Methods(http.MethodDelete)
}

// create handles POST /{resource}
func (res *resource[T, C, U]) create(w http.ResponseWriter, r *http.Request) {
	var in C
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	if owned, ok := any(&in).(ownedInput); ok {
		caller := middleware.GetAuthContext(r)
		if !caller.IsAdmin() || owned.owner() == "" {
			owned.setOwner(caller.UserID)
		}
	}

	out, err := res.svc.Create(r.Context(), in)
	if err != nil {
		res.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, res.singular+" created", out)
}

// list handles GET /{resource}
func (res *resource[T, C, U]) list(w http.ResponseWriter, r *http.Request) {
	page, ok := httputil.ParsePageOrError(w, r, defaultPageSize, maxPageSize)
	if !ok {
		return
	}
	params := ListParams{Limit: page.Limit, Offset: page.Offset}
	if res.parentKey != "" {
		params.ParentID = r.URL.Query().Get(res.parentKey)
	}
	if caller := middleware.GetAuthContext(r); res.ownReads && !caller.IsAdmin() {
		params.OwnerID = caller.UserID
	}

	items, err := res.svc.List(r.Context(), params)
	if err != nil {
		res.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, res.plural+" retrieved", items)
}

// get handles GET /{resource}/{id}
func (res *resource[T, C, U]) get(w http.ResponseWriter, r *http.Request) {
	item, _, ok := res.load(w, r, res.ownReads)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, res.singular+" retrieved", item)
}

// update handles PUT /{resource}/{id}
func (res *resource[T, C, U]) update(w http.ResponseWriter, r *http.Request) {
	_, id, ok := res.load(w, r, true)
	if !ok {
		return
	}
	var in U
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	out, err := res.svc.Update(r.Context(), id, in)
	if err != nil {
		res.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, res.singular+" updated", out)
}

// remove handles DELETE /{resource}/{id}
func (res *resource[T, C, U]) remove(w http.ResponseWriter, r *http.Request) {
	_, id, ok := res.load(w, r, true)
	if !ok {
		return
	}
	if err := res.svc.Delete(r.Context(), id); err != nil {
		res.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, res.singular+" deleted", nil)
}

// load fetches the {id} row. When ownerOnly is set, non-admins only see rows
// they own; a row owned by someone else reads as not found.
func (res *resource[T, C, U]) load(w http.ResponseWriter, r *http.Request, ownerOnly bool) (*T, string, bool) {
	id, ok := httputil.ParsePathUUIDOrError(w, r, "id")
	if !ok {
		return nil, "", false
	}
	item, err := res.svc.Get(r.Context(), id)
	if err != nil {
		res.writeError(w, r, err)
		return nil, "", false
	}
	if owned, isOwned := any(item).(ownedRecord); isOwned && ownerOnly {
		caller := middleware.GetAuthContext(r)
		if !caller.IsAdmin() && owned.Owner() != caller.UserID {
			httputil.WriteNotFoundError(w, res.singular+" not found")
			return nil, "", false
		}
	}
	return item, id, true
}

func (res *resource[T, C, U]) writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, res.logger, res.singular, err)
}

// writeError maps the catalog taxonomy onto HTTP status codes. Store failures
// are logged and answered with an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, singular string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFoundError(w, singular+" not found")
	case errors.Is(err, ErrAlreadyReviewed):
		httputil.WriteConflict(w, "Confirmation has already been reviewed")
	case errors.Is(err, ErrConflict):
		httputil.WriteConflict(w, singular+" already exists")
	case errors.Is(err, ErrInvalid):
		httputil.WriteValidationError(w, strings.TrimPrefix(err.Error(), ErrInvalid.Error()+": "))
	case errors.Is(err, sqlstore.ErrDocumentsDisabled):
		httputil.WriteServiceUnavailable(w, "Document uploads are not configured")
	default:
		logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Errorf("%s request failed", singular)
		httputil.WriteInternalError(w)
	}
}

// Handlers exposes every catalog resource under one router.
type Handlers struct {
	catalog *Catalog
	perms   *rbac.PermissionMiddleware
	logger  *logrus.Logger
}

// NewHandlers creates catalog handlers.
func NewHandlers(c *Catalog, perms *rbac.PermissionMiddleware, logger *logrus.Logger) *Handlers {
	return &Handlers{catalog: c, perms: perms, logger: logger}
}

// RegisterRoutes registers catalog routes on an authenticated router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	(&resource[Chapter, CreateChapter, UpdateChapter]{
		name: rbac.ResourceChapters, singular: "Chapter", plural: "Chapters",
		parentKey: "courseId", svc: h.catalog.Chapters, logger: h.logger,
	}).register(router, h.perms)

	(&resource[Level, CreateLevel, UpdateLevel]{
		name: rbac.ResourceLevels, singular: "Level", plural: "Levels",
		svc: h.catalog.Levels, logger: h.logger,
	}).register(router, h.perms)

	(&resource[Note, CreateNote, UpdateNote]{
		name: rbac.ResourceNotes, singular: "Note", plural: "Notes",
		parentKey: "chapterId", svc: h.catalog.Notes, ownReads: true, logger: h.logger,
	}).register(router, h.perms)

	(&resource[PermissionGrant, CreatePermission, UpdatePermission]{
		name: rbac.ResourcePermissions, singular: "Permission", plural: "Permissions",
		parentKey: "role", svc: h.catalog.Permissions, logger: h.logger,
	}).register(router, h.perms)

	router.Handle("/wallets/{id}/adjust",
		h.perms.RequirePermission(rbac.ResourceWallets, rbac.ActionAdjust)(http.HandlerFunc(h.adjustWallet))).
		Methods(http.MethodPost)
	(&resource[Wallet, CreateWallet, UpdateWallet]{
		name: rbac.ResourceWallets, singular: "Wallet", plural: "Wallets",
		svc: h.catalog.Wallets, ownReads: true, logger: h.logger,
	}).register(router, h.perms)

	(&resource[Feedback, CreateFeedback, UpdateFeedback]{
		name: rbac.ResourceFeedback, singular: "Feedback", plural: "Feedback",
		parentKey: "courseId", svc: h.catalog.Feedback, logger: h.logger,
	}).register(router, h.perms)

	router.Handle("/citizen-ids/{id}/review",
		h.perms.RequirePermission(rbac.ResourceCitizenIDs, rbac.ActionReview)(http.HandlerFunc(h.reviewCitizenID))).
		Methods(http.MethodPost)
	router.Handle("/citizen-ids/{id}/documents",
		h.perms.RequirePermission(rbac.ResourceCitizenIDs, rbac.ActionUpload)(http.HandlerFunc(h.uploadCitizenIDDocument))).
		Methods(http.MethodPost)
	(&resource[CitizenIDConfirmation, CreateCitizenID, UpdateCitizenID]{
		name: rbac.ResourceCitizenIDs, singular: "Citizen ID confirmation", plural: "Citizen ID confirmations",
		parentKey: "status", svc: h.catalog.CitizenIDs, ownReads: true, logger: h.logger,
	}).register(router, h.perms)

	(&resource[LearnerCourse, CreateLearnerCourse, UpdateLearnerCourse]{
		name: rbac.ResourceLearnerCourses, singular: "Enrollment", plural: "Enrollments",
		parentKey: "courseId", svc: h.catalog.LearnerCourses, ownReads: true, logger: h.logger,
	}).register(router, h.perms)

	(&resource[InstructorCourseTransaction, CreateInstructorTransaction, UpdateInstructorTransaction]{
		name: rbac.ResourceInstructorTransactions, singular: "Transaction", plural: "Transactions",
		parentKey: "courseId", svc: h.catalog.InstructorTransactions, ownReads: true, logger: h.logger,
	}).register(router, h.perms)
}

type adjustRequest struct {
	Amount int64 `json:"amount"`
}

// adjustWallet handles POST /wallets/{id}/adjust
func (h *Handlers) adjustWallet(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathUUIDOrError(w, r, "id")
	if !ok {
		return
	}
	var req adjustRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	wallet, err := h.catalog.Wallets.Adjust(r.Context(), id, req.Amount)
	if err != nil {
		writeError(w, r, h.logger, "Wallet", err)
		return
	}
	h.logger.WithFields(logrus.Fields{
		"wallet_id": id,
		"delta":     req.Amount,
		"by":        middleware.GetAuthContext(r).UserID,
	}).Info("wallet adjusted")
	httputil.WriteSuccess(w, "Wallet adjusted", wallet)
}

// reviewCitizenID handles POST /citizen-ids/{id}/review
func (h *Handlers) reviewCitizenID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathUUIDOrError(w, r, "id")
	if !ok {
		return
	}
	var req ReviewCitizenID
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	out, err := h.catalog.CitizenIDs.Review(r.Context(), id, middleware.GetAuthContext(r).UserID, req)
	if err != nil {
		writeError(w, r, h.logger, "Citizen ID confirmation", err)
		return
	}
	httputil.WriteSuccess(w, "Citizen ID confirmation reviewed", out)
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// uploadCitizenIDDocument handles POST /citizen-ids/{id}/documents as a
// multipart form with fields "side" (front or back) and "file".
func (h *Handlers) uploadCitizenIDDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathUUIDOrError(w, r, "id")
	if !ok {
		return
	}

	existing, err := h.catalog.CitizenIDs.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, "Citizen ID confirmation", err)
		return
	}
	if caller := middleware.GetAuthContext(r); !caller.IsAdmin() && existing.UserID != caller.UserID {
		httputil.WriteNotFoundError(w, "Citizen ID confirmation not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteBadRequest(w, "Invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		httputil.WriteValidationError(w, "file must be a JPEG, PNG or WebP image")
		return
	}

	out, err := h.catalog.CitizenIDs.UploadDocument(r.Context(), id, r.FormValue("side"), contentType, file)
	if err != nil {
		writeError(w, r, h.logger, "Citizen ID confirmation", err)
		return
	}
	httputil.WriteSuccess(w, "Document uploaded", out)
}
