package catalog

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

type memoryDocuments struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
	err     error
}

func newMemoryDocuments() *memoryDocuments {
	return &memoryDocuments{objects: map[string]string{}, types: map[string]string{}}
}

func (m *memoryDocuments) Put(_ context.Context, key, contentType string, body io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = string(data)
	m.types[key] = contentType
	return "https://cdn.example.com/" + key, nil
}

func submitCitizenID(t *testing.T, c *Catalog, conn *sqlstore.ConnectionManager) *CitizenIDConfirmation {
	t.Helper()
	user := seedUser(t, conn, auth.RoleInstructor)
	conf, err := c.CitizenIDs.Create(context.Background(), CreateCitizenID{
		UserID:    user,
		CitizenID: "012345678901",
		FullName:  " Nguyen Van A ",
	})
	require.NoError(t, err)
	return conf
}

func TestCitizenIDs_CreateAndUniqueness(t *testing.T) {
	c, conn := newTestCatalog(t)
	ctx := context.Background()
	conf := submitCitizenID(t, c, conn)

	assert.Equal(t, StatusPending, conf.Status)
	assert.Equal(t, "Nguyen Van A", conf.FullName)
	assert.Nil(t, conf.ReviewedBy)
	assert.Nil(t, conf.ReviewedAt)

	other := seedUser(t, conn, auth.RoleInstructor)
	_, err := c.CitizenIDs.Create(ctx, CreateCitizenID{UserID: other, CitizenID: "012345678901", FullName: "B"})
	assert.ErrorIs(t, err, ErrConflict, "id number claimed once")

	_, err = c.CitizenIDs.Create(ctx, CreateCitizenID{UserID: conf.UserID, CitizenID: "123456789", FullName: "A"})
	assert.ErrorIs(t, err, ErrConflict, "one confirmation per user")

	for _, bad := range []string{"", "12345", "12345678a", "1234567890"} {
		_, err = c.CitizenIDs.Create(ctx, CreateCitizenID{UserID: other, CitizenID: bad, FullName: "B"})
		assert.ErrorIs(t, err, ErrInvalid, bad)
	}
}

func TestCitizenIDs_Review(t *testing.T) {
	c, conn := newTestCatalog(t)
	ctx := context.Background()
	conf := submitCitizenID(t, c, conn)
	admin := seedUser(t, conn, auth.RoleAdmin)

	_, err := c.CitizenIDs.Review(ctx, conf.ID, admin, ReviewCitizenID{Status: StatusRejected})
	assert.ErrorIs(t, err, ErrInvalid, "rejection needs a note")
	_, err = c.CitizenIDs.Review(ctx, conf.ID, admin, ReviewCitizenID{Status: StatusPending})
	assert.ErrorIs(t, err, ErrInvalid)

	reviewed, err := c.CitizenIDs.Review(ctx, conf.ID, admin, ReviewCitizenID{Status: StatusApproved, Note: "matches"})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, reviewed.Status)
	assert.Equal(t, "matches", reviewed.ReviewerNote)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, admin, *reviewed.ReviewedBy)
	assert.NotNil(t, reviewed.ReviewedAt)

	_, err = c.CitizenIDs.Review(ctx, conf.ID, admin, ReviewCitizenID{Status: StatusRejected, Note: "late"})
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = c.CitizenIDs.Update(ctx, conf.ID, UpdateCitizenID{FullName: strp("Changed")})
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	_, err = c.CitizenIDs.Review(ctx, "missing", admin, ReviewCitizenID{Status: StatusApproved})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrAlreadyReviewed)
}

func TestCitizenIDs_ListByStatus(t *testing.T) {
	c, conn := newTestCatalog(t)
	ctx := context.Background()
	pending := submitCitizenID(t, c, conn)
	other := seedUser(t, conn, auth.RoleInstructor)
	approved, err := c.CitizenIDs.Create(ctx, CreateCitizenID{UserID: other, CitizenID: "987654321", FullName: "B"})
	require.NoError(t, err)
	_, err = c.CitizenIDs.Review(ctx, approved.ID, other, ReviewCitizenID{Status: StatusApproved})
	require.NoError(t, err)

	got, err := c.CitizenIDs.List(ctx, ListParams{ParentID: "pending"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)
}

func TestCitizenIDs_UploadDocument(t *testing.T) {
	docs := newMemoryDocuments()
	c, conn := newTestCatalog(t, WithDocuments(docs))
	ctx := context.Background()
	conf := submitCitizenID(t, c, conn)

	out, err := c.CitizenIDs.UploadDocument(ctx, conf.ID, SideFront, "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out.FrontImageURL, "https://cdn.example.com/citizen-ids/"+conf.ID+"/front-"))
	assert.Empty(t, out.BackImageURL)

	key := strings.TrimPrefix(out.FrontImageURL, "https://cdn.example.com/")
	assert.Equal(t, "png-bytes", docs.objects[key])
	assert.Equal(t, "image/png", docs.types[key])

	_, err = c.CitizenIDs.UploadDocument(ctx, conf.ID, "selfie", "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = c.CitizenIDs.UploadDocument(ctx, "missing", SideBack, "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotFound)

	docs.err = errors.New("bucket unavailable")
	_, err = c.CitizenIDs.UploadDocument(ctx, conf.ID, SideBack, "image/png", strings.NewReader("x"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
	docs.err = nil

	_, err = c.CitizenIDs.Review(ctx, conf.ID, conf.UserID, ReviewCitizenID{Status: StatusApproved})
	require.NoError(t, err)
	_, err = c.CitizenIDs.UploadDocument(ctx, conf.ID, SideBack, "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
}

func TestCitizenIDs_UploadWithoutDocumentStore(t *testing.T) {
	c, conn := newTestCatalog(t)
	conf := submitCitizenID(t, c, conn)

	_, err := c.CitizenIDs.UploadDocument(context.Background(), conf.ID, SideFront, "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, sqlstore.ErrDocumentsDisabled)
}
