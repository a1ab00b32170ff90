package service

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/google/uuid"

	"github.com/openlmis/buq/internal/domain"
	"github.com/openlmis/buq/internal/referencedata"
	"github.com/openlmis/buq/pkg/utils"
)

// PreparationFormFilename is the suggested download name for the report.
const PreparationFormFilename = "buq_quantification_preparation_report.csv"

var preparationFormHeader = []string{
	"Product Code",
	"Product Name",
	"Unit",
	"Annual Adjusted Consumption",
	"Verified Annual Adjusted Consumption",
	"Forecasted Demand",
}

// renderPreparationForm writes the line items as CSV in orderable order.
// Product code and name come from the approved-products lookup; items whose
// orderable is no longer approved fall back to the orderable identifier.
func renderPreparationForm(buq *domain.BottomUpQuantification, products []*referencedata.ApprovedProduct) ([]byte, error) {
	byOrderable := make(map[uuid.UUID]*referencedata.ApprovedProduct, len(products))
	for _, product := range products {
		byOrderable[product.OrderableID] = product
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(preparationFormHeader); err != nil {
		return nil, utils.WrapError(err, "failed to write report header")
	}

	for _, item := range buq.LineItems {
		code := item.OrderableID.String()
		name := ""
		if product, ok := byOrderable[item.OrderableID]; ok {
			code = product.ProductCode
			name = product.FullProductName
		}

		record := []string{
			code,
			name,
			"Each",
			renderCount(item.AnnualAdjustedConsumption),
			renderCount(item.VerifiedAnnualAdjustedConsumption),
			renderCount(item.ForecastedDemand),
		}
		if err := writer.Write(record); err != nil {
			return nil, utils.WrapError(err, "failed to write report row")
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, utils.WrapError(err, "failed to render report")
	}
	return buf.Bytes(), nil
}

func renderCount(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}
