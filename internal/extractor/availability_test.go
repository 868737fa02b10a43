package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SYNC-360/kravet-scraper/internal/models"
)

func TestParseAvailability(t *testing.T) {
	tests := []struct {
		text     string
		status   models.AvailabilityStatus
		quantity float64
		leadTime string
	}{
		{text: "Discontinued — special order only", status: models.StatusDiscontinued},
		{text: "Special order, ships in 6 weeks", status: models.StatusBackorder, leadTime: "6 weeks"},
		{text: "Pre-Order", status: models.StatusBackorder},
		{text: "Currently unavailable", status: models.StatusOutOfStock},
		{text: "Sold out", status: models.StatusOutOfStock},
		{text: "In Stock: 45 yards", status: models.StatusInStock, quantity: 45},
		{text: "Available - 1,200.5 yds. Lead time: 3-5 business days", status: models.StatusInStock, quantity: 1200.5, leadTime: "3-5 business days"},
		{text: "", status: models.StatusOutOfStock},
		{text: "Contact us", status: models.StatusOutOfStock},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := ParseAvailability(tt.text)
			assert.Equal(t, tt.status, got.Status)
			if tt.quantity == 0 {
				assert.Nil(t, got.Quantity)
			} else {
				require.NotNil(t, got.Quantity)
				assert.Equal(t, tt.quantity, *got.Quantity)
			}
			if tt.leadTime == "" {
				assert.Nil(t, got.LeadTime)
			} else {
				require.NotNil(t, got.LeadTime)
				assert.Equal(t, tt.leadTime, *got.LeadTime)
			}
		})
	}
}
