package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/arman-dn/fleetops-contracts/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate writes the audit trail for a period into one worksheet, newest
// entries last.
func (g *Generator) Generate(export model.AuditTrailExport) ([]byte, error) {
	file := excelize.NewFile()

	sheet := "Audit Trail"
	file.SetSheetName("Sheet1", sheet)

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Period start")
	set("B1", export.PeriodStart.Format("2006-01-02"))
	set("A2", "Period end")
	set("B2", export.PeriodEnd.Format("2006-01-02"))
	set("A3", "Entries")
	set("B3", len(export.Entries))

	headers := []string{"Time", "Action", "User", "Contract", "Details", "IP"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 5)
		set(cell, header)
	}

	for row, entry := range export.Entries {
		contractID := ""
		if entry.ContractID != nil {
			contractID = entry.ContractID.String()
		}
		values := []interface{}{
			entry.CreatedAt.Format("2006-01-02 15:04:05"),
			string(entry.Action),
			entry.UserID.String(),
			contractID,
			entry.Details,
			entry.IPAddress,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+6)
			if err != nil {
				return nil, fmt.Errorf("cell name: %w", err)
			}
			set(cell, value)
		}
	}

	_ = file.SetColWidth(sheet, "A", "A", 20)
	_ = file.SetColWidth(sheet, "B", "D", 28)
	_ = file.SetColWidth(sheet, "E", "E", 60)

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
