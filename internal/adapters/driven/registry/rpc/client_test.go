package rpc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
)

const okEnvelope = `{"Header":{"Duration":1},"ModuleResults":[{"TotalCount":0,"Count":0,"Results":[]}]}`

// fakeRegistry is an httptest-backed stand-in for the RPC service. It records
// every call and serves canned envelopes per operation.
type fakeRegistry struct {
	mu        sync.Mutex
	calls     []string
	params    map[string]url.Values
	responses map[string]string
	statuses  map[string]int
	sessions  int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		params:    make(map[string]url.Values),
		responses: make(map[string]string),
		statuses:  make(map[string]int),
	}
}

func (f *fakeRegistry) respond(operation, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[operation] = body
}

func (f *fakeRegistry) status(operation string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[operation] = code
}

func (f *fakeRegistry) callsTo(operation string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if call == operation {
			n++
		}
	}
	return n
}

func (f *fakeRegistry) lastParams(operation string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params[operation]
}

func (f *fakeRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	operation := strings.TrimPrefix(r.URL.Path, "/")

	f.mu.Lock()
	f.calls = append(f.calls, operation)
	f.params[operation] = r.URL.Query()
	body, canned := f.responses[operation]
	status := f.statuses[operation]
	if operation == "Session/Create" && !canned {
		f.sessions++
		body = fmt.Sprintf(`{"ModuleResults":[{"Results":[{"SessionGUID":"session-%d"}]}]}`, f.sessions)
	}
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if body == "" {
		body = okEnvelope
	}
	fmt.Fprint(w, body)
}

func newTestClient(t *testing.T) (*Client, *fakeRegistry) {
	t.Helper()
	registry := newFakeRegistry()
	server := httptest.NewServer(registry)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, "robot@example.test", "s3cret",
		WithRequestsPerSecond(1000),
		WithClientGUID("client-guid-1"),
	)
	require.NoError(t, err)
	return client, registry
}

func TestFirstCallAuthenticates(t *testing.T) {
	client, registry := newTestClient(t)

	require.NoError(t, client.UpdateSession(context.Background()))

	assert.Equal(t, []string{"Session/Create", "EmailPassword/Login"}, registry.calls)
	assert.Equal(t, "session-1", client.SessionID())

	create := registry.lastParams("Session/Create")
	assert.Equal(t, "6", create.Get("protocolVersion"))
	assert.Equal(t, "client-guid-1", create.Get("clientGUID"))
	assert.Equal(t, "json", create.Get("format"))

	login := registry.lastParams("EmailPassword/Login")
	assert.Equal(t, "robot@example.test", login.Get("email"))
	assert.Equal(t, "s3cret", login.Get("password"))
	assert.Equal(t, "session-1", login.Get("sessionGUID"))
}

func TestLoginFailureClearsSession(t *testing.T) {
	client, registry := newTestClient(t)
	registry.respond("EmailPassword/Login",
		`{"ModuleResults":[{"Error":{"Fullname":"AuthError","Message":"Wrong email or password"}}]}`)

	err := client.UpdateSession(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceFailure)
	assert.False(t, client.HasSession())
}

func TestReauthenticateCreatesFreshSession(t *testing.T) {
	client, registry := newTestClient(t)

	require.NoError(t, client.UpdateSession(context.Background()))
	require.Equal(t, "session-1", client.SessionID())

	require.NoError(t, client.Reauthenticate(context.Background()))
	assert.Equal(t, "session-2", client.SessionID())
	assert.Equal(t, 2, registry.callsTo("Session/Create"))
}

func TestExpiredSessionFaultMapsToSentinel(t *testing.T) {
	client, registry := newTestClient(t)
	registry.respond("Object/Get",
		`{"ModuleResults":[{"Error":{"Fullname":"SessionError","Message":"Session has expired"}}]}`)

	_, _, err := client.GetObjects(context.Background(), driven.ObjectQuery{PageSize: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestTopLevelFault(t *testing.T) {
	client, registry := newTestClient(t)
	registry.respond("Object/Get",
		`{"Error":{"Fullname":"TransportError","Message":"Service unavailable"},"ModuleResults":[]}`)

	_, _, err := client.GetObjects(context.Background(), driven.ObjectQuery{PageSize: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceFailure)
	assert.Contains(t, err.Error(), "Service unavailable")
}

func TestNonOKStatus(t *testing.T) {
	client, registry := newTestClient(t)
	registry.status("Object/Get", http.StatusBadGateway)

	_, _, err := client.GetObjects(context.Background(), driven.ObjectQuery{PageSize: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceFailure)
}

func TestGetObjects(t *testing.T) {
	client, registry := newTestClient(t)
	registry.respond("Object/Get", `{"ModuleResults":[{"TotalCount":7,"Count":1,"Results":[{
		"GUID":"obj-1","ObjectTypeID":36,"FolderID":731,
		"DateCreated":"/Date(1700000000000)/",
		"Metadatas":[{"MetadataSchemaGUID":"schema-1","LanguageCode":"en","RevisionID":3,"MetadataXML":"<doc/>"}],
		"Files":[{"ID":9,"FormatID":1,"DestinationID":10,"Filename":"a.jpg","OriginalFilename":"a.jpg","FolderPath":"/media/","URL":"http://files.example.test/media/a.jpg"}],
		"AccessPoints":[{"AccessPointGUID":"ap-1","StartDate":"2024-01-01T00:00:00Z"}]
	}]}]}`)

	total, objects, err := client.GetObjects(context.Background(), driven.ObjectQuery{
		Query:               `id:"rec-1"`,
		Sort:                "DateCreated+asc",
		PageSize:            4,
		IncludeMetadata:     true,
		IncludeFiles:        true,
		IncludeAccessPoints: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 7, total)
	require.Len(t, objects, 1)

	object := objects[0]
	assert.Equal(t, "obj-1", object.ID)
	assert.Equal(t, 36, object.TypeID)
	assert.Equal(t, time.UnixMilli(1700000000000), object.DateCreated)

	require.Len(t, object.Metadata, 1)
	assert.Equal(t, "schema-1", object.Metadata[0].SchemaID)
	assert.Equal(t, 3, object.Metadata[0].RevisionID)

	require.Len(t, object.Files, 1)
	assert.Equal(t, int64(9), object.Files[0].ID)

	require.Len(t, object.AccessPoints, 1)
	require.NotNil(t, object.AccessPoints[0].StartDate)
	assert.Equal(t, 2024, object.AccessPoints[0].StartDate.Year())

	params := registry.lastParams("Object/Get")
	assert.Equal(t, `id:"rec-1"`, params.Get("query"))
	assert.Equal(t, "DateCreated+asc", params.Get("sort"))
	assert.Equal(t, "4", params.Get("pageSize"))
	assert.Equal(t, "true", params.Get("includeMetadata"))
	assert.Equal(t, "true", params.Get("includeFiles"))
	assert.Equal(t, "true", params.Get("includeAccessPoints"))
	assert.Equal(t, "session-1", params.Get("sessionGUID"))
}

func TestCreateObject(t *testing.T) {
	client, registry := newTestClient(t)
	registry.respond("Object/Create",
		`{"ModuleResults":[{"Results":[{"GUID":"obj-new","ObjectTypeID":36,"FolderID":731}]}]}`)

	object, err := client.CreateObject(context.Background(), 36, 731)
	require.NoError(t, err)
	assert.Equal(t, "obj-new", object.ID)

	params := registry.lastParams("Object/Create")
	assert.Equal(t, "36", params.Get("objectTypeID"))
	assert.Equal(t, "731", params.Get("folderID"))
}

func TestSetPublishSettings(t *testing.T) {
	client, registry := newTestClient(t)

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, client.SetPublishSettings(context.Background(), "obj-1", "ap-1", &start))

	params := registry.lastParams("AccessPoint/Set")
	assert.Equal(t, "obj-1", params.Get("objectGUID"))
	assert.Equal(t, "ap-1", params.Get("accessPointGUID"))
	assert.Equal(t, "2024-03-01T12:00:00Z", params.Get("startDate"))

	// Unpublish sends no start date.
	require.NoError(t, client.SetPublishSettings(context.Background(), "obj-1", "ap-1", nil))
	params = registry.lastParams("AccessPoint/Set")
	assert.False(t, params.Has("startDate"))
}

func TestSetMetadata(t *testing.T) {
	client, registry := newTestClient(t)

	revision := 4
	require.NoError(t, client.SetMetadata(context.Background(), "obj-1", "schema-1", "en", &revision, "<doc/>"))

	params := registry.lastParams("Metadata/Set")
	assert.Equal(t, "obj-1", params.Get("objectGUID"))
	assert.Equal(t, "schema-1", params.Get("metadataSchemaGUID"))
	assert.Equal(t, "en", params.Get("languageCode"))
	assert.Equal(t, "4", params.Get("revisionID"))
	assert.Equal(t, "<doc/>", params.Get("metadataXML"))

	// First write of a schema carries no revision.
	require.NoError(t, client.SetMetadata(context.Background(), "obj-1", "schema-1", "en", nil, "<doc/>"))
	params = registry.lastParams("Metadata/Set")
	assert.False(t, params.Has("revisionID"))
}

func TestCreateFile(t *testing.T) {
	client, registry := newTestClient(t)
	registry.respond("File/Create",
		`{"ModuleResults":[{"Results":[{"ID":42,"ParentID":41,"FormatID":2,"Filename":"a.jpg"}]}]}`)

	parent := int64(41)
	file, err := client.CreateFile(context.Background(), "obj-1", driven.FileSpec{
		FormatID:         2,
		DestinationID:    11,
		Filename:         "a.jpg",
		OriginalFilename: "a.jpg",
		FolderPath:       "/media/",
		ParentFileID:     &parent,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), file.ID)
	require.NotNil(t, file.ParentID)
	assert.Equal(t, int64(41), *file.ParentID)

	params := registry.lastParams("File/Create")
	assert.Equal(t, "41", params.Get("parentID"))
	assert.Equal(t, "/media/", params.Get("folderPath"))
}

func TestDeleteFile(t *testing.T) {
	client, registry := newTestClient(t)

	require.NoError(t, client.DeleteFile(context.Background(), 42))
	assert.Equal(t, "42", registry.lastParams("File/Delete").Get("fileID"))
}

func TestGetMetadataSchema(t *testing.T) {
	client, registry := newTestClient(t)
	registry.respond("MetadataSchema/Get",
		`{"ModuleResults":[{"Results":[{"SchemaXML":"<xs:schema/>"}]}]}`)

	schema, err := client.GetMetadataSchema(context.Background(), "schema-1")
	require.NoError(t, err)
	assert.Equal(t, "<xs:schema/>", schema)

	registry.respond("MetadataSchema/Get", okEnvelope)
	_, err = client.GetMetadataSchema(context.Background(), "schema-9")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewClient_ValidatesSettings(t *testing.T) {
	_, err := NewClient("", "a@b.c", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestWireTime(t *testing.T) {
	var ts wireTime
	require.NoError(t, ts.UnmarshalJSON([]byte(`"2024-01-02T03:04:05Z"`)))
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), ts.Time)

	require.NoError(t, ts.UnmarshalJSON([]byte(`"/Date(1700000000000)/"`)))
	assert.Equal(t, time.UnixMilli(1700000000000), ts.Time)

	require.NoError(t, ts.UnmarshalJSON([]byte(`null`)))
	assert.True(t, ts.IsZero())

	assert.Error(t, ts.UnmarshalJSON([]byte(`"yesterday"`)))
}
