package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
)

// GetObjects runs a lookup query and returns the total match count along
// with one page of results.
func (c *Client) GetObjects(ctx context.Context, q driven.ObjectQuery) (int, []domain.RegistryObject, error) {
	params := url.Values{
		"pageIndex": {strconv.Itoa(q.PageIndex)},
		"pageSize":  {strconv.Itoa(q.PageSize)},
	}
	if q.Query != "" {
		params.Set("query", q.Query)
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.AccessPointID != "" {
		params.Set("accessPointGUID", q.AccessPointID)
	}
	if q.IncludeMetadata {
		params.Set("includeMetadata", "true")
	}
	if q.IncludeFiles {
		params.Set("includeFiles", "true")
	}
	if q.IncludeAccessPoints {
		params.Set("includeAccessPoints", "true")
	}

	result, err := c.call(ctx, "Object/Get", params, true)
	if err != nil {
		return 0, nil, err
	}

	objects := make([]domain.RegistryObject, 0, len(result.Results))
	for _, raw := range result.Results {
		var dto objectDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			return 0, nil, fmt.Errorf("%w: decode object: %v", domain.ErrServiceFailure, err)
		}
		objects = append(objects, dto.toDomain())
	}
	return result.TotalCount, objects, nil
}

// CreateObject creates an empty object of the given type in a folder.
func (c *Client) CreateObject(ctx context.Context, objectTypeID, folderID int) (*domain.RegistryObject, error) {
	result, err := c.call(ctx, "Object/Create", url.Values{
		"objectTypeID": {strconv.Itoa(objectTypeID)},
		"folderID":     {strconv.Itoa(folderID)},
	}, true)
	if err != nil {
		return nil, err
	}
	if len(result.Results) == 0 {
		return nil, fmt.Errorf("%w: create returned no object", domain.ErrServiceFailure)
	}

	var dto objectDTO
	if err := json.Unmarshal(result.Results[0], &dto); err != nil {
		return nil, fmt.Errorf("%w: decode created object: %v", domain.ErrServiceFailure, err)
	}
	object := dto.toDomain()
	return &object, nil
}

// SetPublishSettings publishes (start != nil) or unpublishes (start == nil)
// an object on an accesspoint.
func (c *Client) SetPublishSettings(ctx context.Context, objectID, accessPointID string, start *time.Time) error {
	params := url.Values{
		"objectGUID":      {objectID},
		"accessPointGUID": {accessPointID},
	}
	if start != nil {
		params.Set("startDate", start.UTC().Format(time.RFC3339))
	}
	_, err := c.call(ctx, "AccessPoint/Set", params, true)
	return err
}

// SetMetadata creates or overwrites one schema's metadata on an object.
func (c *Client) SetMetadata(ctx context.Context, objectID, schemaID, languageCode string, revisionID *int, xml string) error {
	params := url.Values{
		"objectGUID":         {objectID},
		"metadataSchemaGUID": {schemaID},
		"languageCode":       {languageCode},
		"metadataXML":        {xml},
	}
	if revisionID != nil {
		params.Set("revisionID", strconv.Itoa(*revisionID))
	}
	_, err := c.call(ctx, "Metadata/Set", params, true)
	return err
}

// CreateFile attaches a file to an object.
func (c *Client) CreateFile(ctx context.Context, objectID string, spec driven.FileSpec) (*domain.FileRecord, error) {
	params := url.Values{
		"objectGUID":       {objectID},
		"formatID":         {strconv.Itoa(spec.FormatID)},
		"destinationID":    {strconv.Itoa(spec.DestinationID)},
		"filename":         {spec.Filename},
		"originalFilename": {spec.OriginalFilename},
		"folderPath":       {spec.FolderPath},
	}
	if spec.ParentFileID != nil {
		params.Set("parentID", strconv.FormatInt(*spec.ParentFileID, 10))
	}

	result, err := c.call(ctx, "File/Create", params, true)
	if err != nil {
		return nil, err
	}
	if len(result.Results) == 0 {
		return nil, fmt.Errorf("%w: create returned no file", domain.ErrServiceFailure)
	}

	var dto fileDTO
	if err := json.Unmarshal(result.Results[0], &dto); err != nil {
		return nil, fmt.Errorf("%w: decode created file: %v", domain.ErrServiceFailure, err)
	}
	return &domain.FileRecord{
		ID:               dto.ID,
		ParentID:         dto.ParentID,
		FormatID:         dto.FormatID,
		DestinationID:    dto.DestinationID,
		Filename:         dto.Filename,
		OriginalFilename: dto.OriginalFilename,
		FolderPath:       dto.FolderPath,
		URL:              dto.URL,
	}, nil
}

// DeleteFile removes a file from the registry. Irreversible.
func (c *Client) DeleteFile(ctx context.Context, fileID int64) error {
	_, err := c.call(ctx, "File/Delete", url.Values{
		"fileID": {strconv.FormatInt(fileID, 10)},
	}, true)
	return err
}

// GetMetadataSchema fetches a schema's XML source by ID.
func (c *Client) GetMetadataSchema(ctx context.Context, schemaID string) (string, error) {
	result, err := c.call(ctx, "MetadataSchema/Get", url.Values{
		"metadataSchemaGUID": {schemaID},
	}, true)
	if err != nil {
		return "", err
	}
	if len(result.Results) == 0 {
		return "", fmt.Errorf("%w: schema %s", domain.ErrNotFound, schemaID)
	}

	var dto struct {
		SchemaXML string `json:"SchemaXML"`
	}
	if err := json.Unmarshal(result.Results[0], &dto); err != nil {
		return "", fmt.Errorf("%w: decode schema: %v", domain.ErrServiceFailure, err)
	}
	return dto.SchemaXML, nil
}
