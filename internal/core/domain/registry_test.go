package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestPublishedAt(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		entry AccessPointEntry
		want  bool
	}{
		{"no start date", AccessPointEntry{}, false},
		{"start in the past", AccessPointEntry{StartDate: timePtr(now.Add(-time.Hour))}, true},
		{"start in the future", AccessPointEntry{StartDate: timePtr(now.Add(time.Hour))}, false},
		{"window open", AccessPointEntry{
			StartDate: timePtr(now.Add(-time.Hour)),
			EndDate:   timePtr(now.Add(time.Hour)),
		}, true},
		{"window closed", AccessPointEntry{
			StartDate: timePtr(now.Add(-2 * time.Hour)),
			EndDate:   timePtr(now.Add(-time.Hour)),
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.PublishedAt(now))
		})
	}
}

func TestIsPublished(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	object := RegistryObject{AccessPoints: []AccessPointEntry{
		{AccessPointID: "ap-1", StartDate: timePtr(now.Add(-time.Hour))},
		{AccessPointID: "ap-2", StartDate: timePtr(now.Add(time.Hour))},
	}}

	assert.True(t, object.IsPublished("ap-1", now))
	assert.False(t, object.IsPublished("ap-2", now))
	assert.False(t, object.IsPublished("ap-9", now))

	assert.Equal(t, []string{"ap-1"}, object.PublishedAccessPoints(now))
}

func TestMetadataForSchema(t *testing.T) {
	object := RegistryObject{Metadata: []MetadataRecord{
		{SchemaID: "schema-1", RevisionID: 3},
		{SchemaID: "schema-2", RevisionID: 1},
	}}

	record := object.MetadataForSchema("schema-2")
	assert.NotNil(t, record)
	assert.Equal(t, 1, record.RevisionID)
	assert.Nil(t, object.MetadataForSchema("schema-9"))
}

func TestRecordRef(t *testing.T) {
	byReference := RecordRef{Reference: "rec-1"}
	assert.True(t, byReference.IsReference())
	assert.Equal(t, "rec-1", byReference.Describe())

	inline := RecordRef{Record: &ExternalRecord{ID: "rec-2"}}
	assert.False(t, inline.IsReference())
	assert.Equal(t, "rec-2", inline.Describe())
}

func TestExtras(t *testing.T) {
	extras := NewExtras()
	assert.Empty(t, extras.ExtractedFiles())

	extras.AddExtractedFile("http://files.example.test/a.jpg")
	extras.AddExtractedFile("http://files.example.test/b.jpg")
	assert.Equal(t, []string{
		"http://files.example.test/a.jpg",
		"http://files.example.test/b.jpg",
	}, extras.ExtractedFiles())

	extras.Set("batch", "nightly")
	assert.Equal(t, "nightly", extras.GetString("batch"))
	_, ok := extras.Get("absent")
	assert.False(t, ok)
}

func TestExternalRecordFieldHelpers(t *testing.T) {
	record := &ExternalRecord{Fields: map[string]any{
		"title":     "A title",
		"withdrawn": true,
		"count":     3,
	}}

	assert.Equal(t, "A title", record.StringField("title"))
	assert.Equal(t, "", record.StringField("count"))
	assert.True(t, record.BoolField("withdrawn"))
	assert.False(t, record.BoolField("absent"))

	var nilRecord *ExternalRecord
	assert.Nil(t, nilRecord.Field("anything"))
}
