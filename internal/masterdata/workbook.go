// =============================================================================
// TraceLink EPCIS Steps - XLSX Master-Data Workbook
// =============================================================================
//
// Master data for the CLI is maintained as an XLSX workbook with one sheet
// per record type. The first row of each sheet names the columns; lookups are
// case-insensitive on the column name and every sheet is optional.
//
// SHEETS:
//   TradeItems       : URN, PackageUOM, NDC, NDCPattern, GTIN14
//   Companies        : Name, GS1CompanyPrefix, GLN13, SGLN, Address1,
//                      Address2, City, StateProvince, PostalCode, CountryCode
//   Locations        : Name, SGLN, GLN13, Address1, Address2, City,
//                      StateProvince, PostalCode, CountryCode
//   OutboundMappings : CompanyPrefix, ShipFromName, ShipFromGLN13,
//                      ShipFromSGLN, ShipFromAddress1, ShipFromCity, ... and
//                      the matching ShipTo* columns
//   Containment      : Child, Parent
//
// The whole workbook is read once into an in-memory repository; master data
// is read-only for the lifetime of a rule execution.
//
// =============================================================================

package masterdata

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadWorkbook reads an XLSX master-data workbook into a Repository.
func LoadWorkbook(path string) (Repository, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open master-data workbook: %w", err)
	}
	defer book.Close()

	repo := NewMemoryRepository()

	if err := eachRow(book, "TradeItems", func(row record) {
		repo.AddTradeItem(&TradeItem{
			URN:        row.get("URN"),
			GTIN14:     row.get("GTIN14"),
			PackageUOM: row.get("PackageUOM"),
			NDC:        row.get("NDC"),
			NDCPattern: row.get("NDCPattern"),
		})
	}); err != nil {
		return nil, err
	}

	if err := eachRow(book, "Companies", func(row record) {
		repo.AddCompany(&Company{
			Name:             row.get("Name"),
			GS1CompanyPrefix: row.get("GS1CompanyPrefix"),
			GLN13:            row.get("GLN13"),
			SGLN:             row.get("SGLN"),
			Address1:         row.get("Address1"),
			Address2:         row.get("Address2"),
			City:             row.get("City"),
			StateProvince:    row.get("StateProvince"),
			PostalCode:       row.get("PostalCode"),
			CountryCode:      row.get("CountryCode"),
		})
	}); err != nil {
		return nil, err
	}

	if err := eachRow(book, "Locations", func(row record) {
		repo.AddLocation(&Location{
			Name:          row.get("Name"),
			SGLN:          row.get("SGLN"),
			GLN13:         row.get("GLN13"),
			Address1:      row.get("Address1"),
			Address2:      row.get("Address2"),
			City:          row.get("City"),
			StateProvince: row.get("StateProvince"),
			PostalCode:    row.get("PostalCode"),
			CountryCode:   row.get("CountryCode"),
		})
	}); err != nil {
		return nil, err
	}

	if err := eachRow(book, "OutboundMappings", func(row record) {
		repo.AddOutboundMapping(&OutboundMapping{
			CompanyPrefix: row.get("CompanyPrefix"),
			ShipFrom:      row.party("ShipFrom"),
			ShipTo:        row.party("ShipTo"),
		})
	}); err != nil {
		return nil, err
	}

	if err := eachRow(book, "Containment", func(row record) {
		if child := row.get("Child"); child != "" {
			repo.SetParent(child, row.get("Parent"))
		}
	}); err != nil {
		return nil, err
	}

	return repo, nil
}

// record is one data row paired with the sheet's header index.
type record struct {
	columns map[string]int
	cells   []string
}

func (r record) get(name string) string {
	idx, ok := r.columns[strings.ToLower(name)]
	if !ok || idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

func (r record) party(side string) Party {
	return Party{
		Name:          r.get(side + "Name"),
		GLN13:         r.get(side + "GLN13"),
		SGLN:          r.get(side + "SGLN"),
		Address1:      r.get(side + "Address1"),
		Address2:      r.get(side + "Address2"),
		City:          r.get(side + "City"),
		StateProvince: r.get(side + "StateProvince"),
		PostalCode:    r.get(side + "PostalCode"),
		CountryCode:   r.get(side + "CountryCode"),
	}
}

// eachRow walks the data rows of a sheet, skipping the sheet entirely if it
// does not exist in the workbook.
func eachRow(book *excelize.File, sheet string, visit func(record)) error {
	rows, err := book.GetRows(sheet)
	if err != nil {
		if _, missing := err.(excelize.ErrSheetNotExist); missing {
			return nil
		}
		return fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil
	}
	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, cells := range rows[1:] {
		if len(cells) == 0 {
			continue
		}
		visit(record{columns: columns, cells: cells})
	}
	return nil
}
