package dto

// RemarkDto is the wire representation of a remark. It satisfies both sides
// of the remark import/export contract.
type RemarkDto struct {
	BaseDto
	VersionNumber int64   `json:"versionNumber,omitempty"`
	Name          string  `json:"name"`
	Description   *string `json:"description"`
}

func (d *RemarkDto) GetName() string {
	return d.Name
}

func (d *RemarkDto) GetDescription() *string {
	return d.Description
}

func (d *RemarkDto) SetName(name string) {
	d.Name = name
}

func (d *RemarkDto) SetDescription(description *string) {
	d.Description = description
}

func (d *RemarkDto) String() string {
	return Describe(d)
}
