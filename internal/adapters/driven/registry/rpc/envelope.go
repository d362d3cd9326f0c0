package rpc

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

// The service wraps every response in a two-level envelope: a transport
// header that can fail independently of the operation, and per-module
// results that carry their own fault. Both levels must be checked; a 200
// response routinely carries a module-level fault.

type envelope struct {
	Header        envelopeHeader `json:"Header"`
	ModuleResults []moduleResult `json:"ModuleResults"`
	Error         *serviceError  `json:"Error"`
}

type envelopeHeader struct {
	Duration int64 `json:"Duration"`
}

type moduleResult struct {
	TotalCount int               `json:"TotalCount"`
	Count      int               `json:"Count"`
	Results    []json.RawMessage `json:"Results"`
	Error      *serviceError     `json:"Error"`
}

type serviceError struct {
	Fullname string `json:"Fullname"`
	Message  string `json:"Message"`
}

// asDomainError classifies a service fault. The service reports an expired
// session as an ordinary fault with a well-known message, not a distinct
// status.
func (e *serviceError) asDomainError() error {
	message := strings.ToLower(e.Message)
	if strings.Contains(message, "session") && (strings.Contains(message, "expired") || strings.Contains(message, "not found")) {
		return fmt.Errorf("%w: %s", domain.ErrSessionExpired, e.Message)
	}
	return fmt.Errorf("%w: %s: %s", domain.ErrServiceFailure, e.Fullname, e.Message)
}

// decodeEnvelope decodes a response body and checks both fault levels.
func decodeEnvelope(body io.Reader) (*moduleResult, error) {
	var env envelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrServiceFailure, err)
	}

	if env.Error != nil && env.Error.Message != "" {
		return nil, env.Error.asDomainError()
	}
	if len(env.ModuleResults) == 0 {
		return nil, fmt.Errorf("%w: response has no module results", domain.ErrServiceFailure)
	}

	result := &env.ModuleResults[0]
	if result.Error != nil && result.Error.Message != "" {
		return nil, result.Error.asDomainError()
	}
	return result, nil
}

// sessionGUID extracts the session GUID from a Session/Create result.
func (r *moduleResult) sessionGUID() (string, error) {
	if len(r.Results) == 0 {
		return "", fmt.Errorf("%w: no session in response", domain.ErrServiceFailure)
	}
	var session struct {
		SessionGUID string `json:"SessionGUID"`
	}
	if err := json.Unmarshal(r.Results[0], &session); err != nil {
		return "", fmt.Errorf("%w: decode session: %v", domain.ErrServiceFailure, err)
	}
	if session.SessionGUID == "" {
		return "", fmt.Errorf("%w: empty session GUID", domain.ErrServiceFailure)
	}
	return session.SessionGUID, nil
}

// Wire representations of registry entities.

type objectDTO struct {
	GUID         string           `json:"GUID"`
	ObjectTypeID int              `json:"ObjectTypeID"`
	FolderID     int              `json:"FolderID"`
	DateCreated  wireTime         `json:"DateCreated"`
	Metadatas    []metadataDTO    `json:"Metadatas"`
	Files        []fileDTO        `json:"Files"`
	AccessPoints []accessPointDTO `json:"AccessPoints"`
}

type metadataDTO struct {
	MetadataSchemaGUID string `json:"MetadataSchemaGUID"`
	LanguageCode       string `json:"LanguageCode"`
	RevisionID         int    `json:"RevisionID"`
	MetadataXML        string `json:"MetadataXML"`
}

type fileDTO struct {
	ID               int64  `json:"ID"`
	ParentID         *int64 `json:"ParentID"`
	FormatID         int    `json:"FormatID"`
	DestinationID    int    `json:"DestinationID"`
	Filename         string `json:"Filename"`
	OriginalFilename string `json:"OriginalFilename"`
	FolderPath       string `json:"FolderPath"`
	URL              string `json:"URL"`
}

type accessPointDTO struct {
	AccessPointGUID string    `json:"AccessPointGUID"`
	StartDate       *wireTime `json:"StartDate"`
	EndDate         *wireTime `json:"EndDate"`
}

// wireTime accepts the service's RFC3339 timestamps and its legacy
// millisecond epoch form.
type wireTime struct {
	time.Time
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}

	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		t.Time = parsed
		return nil
	}

	var millis int64
	if _, err := fmt.Sscanf(raw, "/Date(%d)/", &millis); err == nil {
		t.Time = time.UnixMilli(millis)
		return nil
	}
	return fmt.Errorf("unparseable timestamp %q", raw)
}

func (o objectDTO) toDomain() domain.RegistryObject {
	object := domain.RegistryObject{
		ID:          o.GUID,
		TypeID:      o.ObjectTypeID,
		FolderID:    o.FolderID,
		DateCreated: o.DateCreated.Time,
	}
	for _, m := range o.Metadatas {
		object.Metadata = append(object.Metadata, domain.MetadataRecord{
			SchemaID:     m.MetadataSchemaGUID,
			LanguageCode: m.LanguageCode,
			RevisionID:   m.RevisionID,
			XML:          m.MetadataXML,
		})
	}
	for _, f := range o.Files {
		object.Files = append(object.Files, domain.FileRecord{
			ID:               f.ID,
			ParentID:         f.ParentID,
			FormatID:         f.FormatID,
			DestinationID:    f.DestinationID,
			Filename:         f.Filename,
			OriginalFilename: f.OriginalFilename,
			FolderPath:       f.FolderPath,
			URL:              f.URL,
		})
	}
	for _, ap := range o.AccessPoints {
		entry := domain.AccessPointEntry{AccessPointID: ap.AccessPointGUID}
		if ap.StartDate != nil && !ap.StartDate.IsZero() {
			start := ap.StartDate.Time
			entry.StartDate = &start
		}
		if ap.EndDate != nil && !ap.EndDate.IsZero() {
			end := ap.EndDate.Time
			entry.EndDate = &end
		}
		object.AccessPoints = append(object.AccessPoints, entry)
	}
	return object
}
