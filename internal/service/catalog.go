package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/repository"
	"github.com/sekkot/portal/internal/validation"
	"github.com/xuri/excelize/v2"
)

// ImportResult summarises a spreadsheet import.
type ImportResult struct {
	Created int
	Skipped []string // one line per rejected row
}

// CatalogService moves catalog and requirement data in and out of Excel.
type CatalogService struct {
	productRepository     repository.ProductRepository
	requirementRepository repository.RequirementRepository
}

func NewCatalogService(productRepository repository.ProductRepository, requirementRepository repository.RequirementRepository) *CatalogService {
	return &CatalogService{
		productRepository:     productRepository,
		requirementRepository: requirementRepository,
	}
}

// ImportProducts reads the first sheet of an .xlsx workbook with the
// columns Name, Category, Description, Image URL, Status. The first row is
// a header. Invalid rows are skipped and reported.
func (s *CatalogService) ImportProducts(ctx context.Context, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid Excel file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	result := &ImportResult{}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		line := i + 1

		in := validation.ProductInput{
			Name:        cell(row, 0),
			Category:    cell(row, 1),
			Description: cell(row, 2),
			Status:      strings.ToLower(cell(row, 4)),
		}
		if in.Name == "" && in.Category == "" {
			continue
		}
		if in.Status == "" {
			in.Status = model.ProductStatusActive
		}

		if errs := validation.ValidateProduct(in, nil); len(errs) > 0 {
			result.Skipped = append(result.Skipped, fmt.Sprintf("row %d: %s", line, errs.Error()))
			continue
		}

		product := &model.Product{
			ID:          uuid.New().String(),
			Name:        in.Name,
			Category:    in.Category,
			Description: in.Description,
			Image:       cell(row, 3),
			Status:      in.Status,
			CreatedAt:   time.Now().UTC(),
		}
		err = s.productRepository.Create(ctx, product)
		if err != nil {
			return result, remote("import products", err)
		}
		result.Created++
	}

	slog.Info("catalog imported", "created", result.Created, "skipped", len(result.Skipped))
	return result, nil
}

// ExportRequirements writes all requirements as an .xlsx workbook.
func (s *CatalogService) ExportRequirements(ctx context.Context, w io.Writer) error {
	reqs, err := s.requirementRepository.All(ctx)
	if err != nil {
		return remote("load requirements", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Requirements"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	header := []any{"Submitted", "Email", "Status", "File", "Description"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, req := range reqs {
		row := []any{
			req.CreatedAt.Format("2006-01-02 15:04"),
			req.Email,
			req.Status,
			req.FileName,
			req.Description,
		}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cellRef, &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}
