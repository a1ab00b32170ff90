package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type remarkData struct {
	id          uuid.UUID
	name        string
	description *string
}

func (d *remarkData) GetID() uuid.UUID          { return d.id }
func (d *remarkData) GetName() string           { return d.name }
func (d *remarkData) GetDescription() *string   { return d.description }
func (d *remarkData) SetID(id uuid.UUID)        { d.id = id }
func (d *remarkData) SetName(name string)       { d.name = name }
func (d *remarkData) SetDescription(de *string) { d.description = de }

func TestNewRemark(t *testing.T) {
	id := uuid.New()
	description := "Product was out of stock during the reporting period"

	remark := NewRemark(&remarkData{
		id:          id,
		name:        "Stockout",
		description: &description,
	})

	assert.Equal(t, id, remark.ID)
	assert.Equal(t, "Stockout", remark.Name)
	require.NotNil(t, remark.Description)
	assert.Equal(t, description, *remark.Description)
}

func TestNewRemark_NilImporterPanics(t *testing.T) {
	assert.Panics(t, func() { NewRemark(nil) })
}

func TestRemark_UpdateFrom(t *testing.T) {
	remark := NewRemark(&remarkData{name: "Stockout"})

	description := "Updated explanation"
	remark.UpdateFrom(&remarkData{name: "Expired", description: &description})

	assert.Equal(t, "Expired", remark.Name)
	require.NotNil(t, remark.Description)
	assert.Equal(t, description, *remark.Description)
}

func TestRemark_UpdateFrom_Idempotent(t *testing.T) {
	description := "explanation"
	data := &remarkData{id: uuid.New(), name: "Stockout", description: &description}

	remark := NewRemark(data)
	first := *remark
	remark.UpdateFrom(data)

	assert.Equal(t, first, *remark)
}

func TestRemark_UpdateFrom_NilImporterPanics(t *testing.T) {
	remark := NewRemark(&remarkData{name: "Stockout"})
	assert.Panics(t, func() { remark.UpdateFrom(nil) })
}

func TestRemark_Export_RoundTrip(t *testing.T) {
	description := "Product unavailable"
	original := &remarkData{
		id:          uuid.New(),
		name:        "Stockout",
		description: &description,
	}

	remark := NewRemark(original)

	var exported remarkData
	remark.Export(&exported)
	assert.Equal(t, *original, exported)

	// A second instance built from the export carries the same state.
	rebuilt := NewRemark(&exported)
	assert.Equal(t, remark, rebuilt)
}

func TestRemark_Export_UnsetFieldsStillWritten(t *testing.T) {
	remark := NewRemark(&remarkData{name: "Stockout"})

	stale := "leftover"
	exported := remarkData{id: uuid.New(), name: "old", description: &stale}
	remark.Export(&exported)

	assert.Equal(t, uuid.Nil, exported.id)
	assert.Equal(t, "Stockout", exported.name)
	assert.Nil(t, exported.description)
}

func TestRemark_Export_NilExporterPanics(t *testing.T) {
	remark := NewRemark(&remarkData{name: "Stockout"})
	assert.Panics(t, func() { remark.Export(nil) })
}
