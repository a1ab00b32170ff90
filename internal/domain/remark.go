package domain

// Remark is a named annotation that quantification line items can reference
// to explain an adjustment.
type Remark struct {
	BaseEntity
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}

type RemarkImporter interface {
	BaseImporter
	GetName() string
	GetDescription() *string
}

type RemarkExporter interface {
	BaseExporter
	SetName(name string)
	SetDescription(description *string)
}

// NewRemark builds a remark from importer data. Creation and update share
// UpdateFrom so field handling cannot diverge between the two paths.
func NewRemark(importer RemarkImporter) *Remark {
	if importer == nil {
		panic("domain: nil RemarkImporter")
	}
	remark := &Remark{}
	remark.SetID(importer.GetID())
	remark.UpdateFrom(importer)
	return remark
}

func (r *Remark) UpdateFrom(importer RemarkImporter) {
	if importer == nil {
		panic("domain: nil RemarkImporter")
	}
	r.Name = importer.GetName()
	r.Description = importer.GetDescription()
}

// Export writes every declared field to the exporter, including unset ones.
func (r *Remark) Export(exporter RemarkExporter) {
	if exporter == nil {
		panic("domain: nil RemarkExporter")
	}
	exporter.SetID(r.ID)
	exporter.SetName(r.Name)
	exporter.SetDescription(r.Description)
}
