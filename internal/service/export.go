package service

import (
	"context"

	"github.com/segyhp/sacco-loans/internal/domain"
	customError "github.com/segyhp/sacco-loans/pkg/errors"
	"github.com/segyhp/sacco-loans/pkg/utils"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const defaultersSheet = "Defaulters"

type defaulterColumn struct {
	Header string
	Value  func(d *domain.Defaulter) interface{}
}

var defaulterColumns = []defaulterColumn{
	{Header: "Member ID", Value: func(d *domain.Defaulter) interface{} { return d.Loan.MemberID }},
	{Header: "Member Name", Value: func(d *domain.Defaulter) interface{} { return d.Loan.MemberName }},
	{Header: "Loan ID", Value: func(d *domain.Defaulter) interface{} { return d.Loan.ID }},
	{Header: "Amount", Value: func(d *domain.Defaulter) interface{} { return d.Loan.Amount.InexactFloat64() }},
	{Header: "Issued", Value: func(d *domain.Defaulter) interface{} { return utils.FormatDate(d.Loan.IssuedDate) }},
	{Header: "Due", Value: func(d *domain.Defaulter) interface{} { return utils.FormatDate(d.Loan.DueDate) }},
	{Header: "Days Late", Value: func(d *domain.Defaulter) interface{} { return d.DaysLate }},
	{Header: "Remaining", Value: func(d *domain.Defaulter) interface{} { return d.Remaining.InexactFloat64() }},
	{Header: "Penalty", Value: func(d *domain.Defaulter) interface{} { return d.Penalty.InexactFloat64() }},
}

// ExportDefaulters renders the defaulters list as an XLSX workbook
func (s *LoanService) ExportDefaulters(ctx context.Context) ([]byte, error) {
	defaulters, err := s.ListDefaulters(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), defaultersSheet); err != nil {
		return nil, customError.WrapExportFailed(err)
	}
	_ = f.SetDocProps(&excelize.DocProperties{
		Creator: "sacco-loans",
		Title:   "Defaulters as of " + utils.FormatDate(s.now()),
	})

	for i, col := range defaulterColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(defaultersSheet, cell, col.Header); err != nil {
			return nil, customError.WrapExportFailed(err)
		}
	}

	for rowIdx, d := range defaulters {
		for colIdx, col := range defaulterColumns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(defaultersSheet, cell, col.Value(d)); err != nil {
				return nil, customError.WrapExportFailed(err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, customError.WrapExportFailed(err)
	}

	s.logger.Info("defaulters exported", zap.Int("rows", len(defaulters)))

	return buf.Bytes(), nil
}
