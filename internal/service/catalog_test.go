package service_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sekkot/portal/internal/storage/storagetest"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cellRef, &row); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func TestImportProducts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, storagetest.NewMemoryStorage("http://files.test"))

	buf := workbook(t, [][]any{
		{"Name", "Category", "Description", "Image URL", "Status"},
		{"Ball valve", "Valves", "Brass, DN25", "", "Active"},
		{"Pipe flange", "Flanges", "", "https://cdn.example.com/flange.png", ""},
		{"", "", "", "", ""},
		{"Nameless", "", "", "", "active"},
		{"Gasket", "Seals", "", "", "retired"},
	})

	result, err := f.catalog.ImportProducts(ctx, buf)
	if err != nil {
		t.Fatal(err)
	}
	if result.Created != 2 {
		t.Fatalf("created = %d, want 2", result.Created)
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("skipped = %v, want 2 rows", result.Skipped)
	}
	if !strings.HasPrefix(result.Skipped[0], "row 5:") || !strings.HasPrefix(result.Skipped[1], "row 6:") {
		t.Fatalf("skipped = %v", result.Skipped)
	}

	products, err := f.products.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}
}

func TestImportProductsRejectsGarbage(t *testing.T) {
	f := newFixture(t, storagetest.NewMemoryStorage("http://files.test"))

	_, err := f.catalog.ImportProducts(context.Background(), strings.NewReader("not a workbook"))
	if err == nil {
		t.Fatal("expected error for a non-xlsx upload")
	}
}

func TestExportRequirements(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, storagetest.NewMemoryStorage("http://files.test"))
	customer := f.user(t, "buyer@example.com")

	if _, err := f.requirements.Submit(ctx, customer, "Brackets", upload(t, "drawing.pdf", pdf)); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := f.catalog.ExportRequirements(ctx, &buf); err != nil {
		t.Fatal(err)
	}

	wb, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = wb.Close() }()

	rows, err := wb.GetRows("Requirements")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header and one requirement", len(rows))
	}
	if rows[1][1] != "buyer@example.com" || rows[1][3] != "drawing.pdf" {
		t.Fatalf("requirement row = %v", rows[1])
	}
}
