// Package roster imports and exports the student roster as Excel workbooks.
package roster

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/learnlab/internal/model"
)

const sheetName = "Students"

var (
	importHeaders = []string{"Name", "Student ID", "Class", "Phone", "Email"}
	exportHeaders = []string{"Name", "Student ID", "Class", "Phone", "Email", "Status", "Created At"}
	columnWidths  = []float64{15, 15, 15, 15, 25, 10, 20}
)

// Store is the persistence the roster reads and writes.
type Store interface {
	UpsertStudent(st model.StudentImport, passwordHash string) (bool, error)
	ActiveStudents() ([]model.User, error)
}

// Service imports and exports student rosters.
type Service struct {
	db              Store
	defaultPassword string
	cost            int
}

// New creates a Service. Newly imported students get defaultPassword.
func New(db Store, defaultPassword string) *Service {
	return &Service{db: db, defaultPassword: defaultPassword, cost: bcrypt.DefaultCost}
}

// Import reads the first sheet of an .xlsx workbook. The first row is a header;
// each following row is name, student ID, class, phone, email. Rows without a
// name or student ID are reported and skipped.
func (s *Service) Import(r io.Reader) (*model.ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	result := &model.ImportResult{Errors: []string{}}
	var hash string
	for i, row := range rows {
		rowNum := i + 1
		if rowNum == 1 {
			continue
		}
		st := parseRow(row)
		if st.Name == "" && st.StudentID == "" && isBlank(row) {
			continue
		}
		if st.Name == "" || st.StudentID == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: name and student id are required", rowNum))
			continue
		}

		if hash == "" {
			b, err := bcrypt.GenerateFromPassword([]byte(s.defaultPassword), s.cost)
			if err != nil {
				return nil, fmt.Errorf("hash default password: %w", err)
			}
			hash = string(b)
		}
		created, err := s.db.UpsertStudent(st, hash)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		if created {
			result.Imported++
		} else {
			result.Updated++
		}
	}
	result.TotalProcessed = result.Imported + result.Updated

	slog.Info("roster import completed",
		"imported", result.Imported,
		"updated", result.Updated,
		"errors", len(result.Errors))
	return result, nil
}

func parseRow(row []string) model.StudentImport {
	col := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	return model.StudentImport{
		Name:      col(0),
		StudentID: col(1),
		ClassName: col(2),
		Phone:     col(3),
		Email:     col(4),
	}
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Export writes all non-deleted students to an .xlsx workbook.
func (s *Service) Export() ([]byte, error) {
	students, err := s.db.ActiveStudents()
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	rows := make([][]any, 0, len(students))
	for _, u := range students {
		rows = append(rows, []any{
			u.DisplayName, u.StudentID, u.ClassName, u.Phone, u.Email,
			string(u.Status), u.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return writeWorkbook(exportHeaders, rows)
}

// Template returns an empty import workbook with one example row.
func Template() ([]byte, error) {
	return writeWorkbook(importHeaders, [][]any{
		{"Jane Doe", "2024001", "Class 1", "13800000000", "jane@example.com"},
	})
}

func writeWorkbook(headers []string, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, err
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, columnWidths[i]); err != nil {
			return nil, err
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, style); err != nil {
		return nil, err
	}

	for r, row := range rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
