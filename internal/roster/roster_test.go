package roster

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/learnlab/internal/model"
)

type fakeStore struct {
	students map[string]model.User
	hashes   map[string]string
	failID   string
}

func newFakeStore() *fakeStore {
	return &fakeStore{students: map[string]model.User{}, hashes: map[string]string{}}
}

func (f *fakeStore) UpsertStudent(st model.StudentImport, hash string) (bool, error) {
	if st.StudentID == f.failID {
		return false, errors.New("disk full")
	}
	u, exists := f.students[st.StudentID]
	u.StudentID = st.StudentID
	u.DisplayName = st.Name
	u.ClassName = st.ClassName
	u.Phone = st.Phone
	u.Email = st.Email
	if !exists {
		u.Status = model.UserStatusActive
		u.CreatedAt = time.Date(2026, 9, 1, 8, 30, 0, 0, time.UTC)
		f.hashes[st.StudentID] = hash
	}
	f.students[st.StudentID] = u
	return !exists, nil
}

func (f *fakeStore) ActiveStudents() ([]model.User, error) {
	var out []model.User
	for _, id := range []string{"S001", "S002", "S003"} {
		if u, ok := f.students[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func newTestService(db Store) *Service {
	s := New(db, "123456")
	s.cost = bcrypt.MinCost
	return s
}

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestImport(t *testing.T) {
	db := newFakeStore()
	svc := newTestService(db)

	data := workbook(t, [][]any{
		{"Name", "Student ID", "Class", "Phone", "Email"},
		{"Alice", "S001", "A1", "555-0101", "alice@example.com"},
		{" Bob ", 2002, "A1"},
		{"", "S009", "B2"},
		{"Nameless ID", ""},
		{},
		{"Carol", "S003", "B2"},
	})
	db.failID = "S003"

	result, err := svc.Import(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 2, result.TotalProcessed)
	assert.Equal(t, []string{
		"row 4: name and student id are required",
		"row 5: name and student id are required",
		"row 7: disk full",
	}, result.Errors)

	bob := db.students["2002"]
	assert.Equal(t, "Bob", bob.DisplayName)
	assert.Equal(t, "A1", bob.ClassName)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(db.hashes["S001"]), []byte("123456")))
}

func TestImportUpdatesExisting(t *testing.T) {
	db := newFakeStore()
	svc := newTestService(db)
	header := []any{"Name", "Student ID", "Class", "Phone", "Email"}

	_, err := svc.Import(bytes.NewReader(workbook(t, [][]any{header, {"Alice", "S001", "A1"}})))
	require.NoError(t, err)

	result, err := svc.Import(bytes.NewReader(workbook(t, [][]any{header, {"Alice Smith", "S001", "A2", "", "a@x.org"}})))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Imported)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, "Alice Smith", db.students["S001"].DisplayName)
	assert.Equal(t, "A2", db.students["S001"].ClassName)
}

func TestImportNotAWorkbook(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.Import(bytes.NewReader([]byte("name,student_id\nAlice,S001\n")))
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	db := newFakeStore()
	svc := newTestService(db)
	_, err := db.UpsertStudent(model.StudentImport{Name: "Alice", StudentID: "S001", ClassName: "A1", Email: "a@x.org"}, "h")
	require.NoError(t, err)
	_, err = db.UpsertStudent(model.StudentImport{Name: "Bob", StudentID: "S002"}, "h")
	require.NoError(t, err)

	data, err := svc.Export()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Students"}, f.GetSheetList())
	rows, err := f.GetRows("Students")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeaders, rows[0])
	assert.Equal(t, []string{"Alice", "S001", "A1", "", "a@x.org", "active", "2026-09-01 08:30:00"}, rows[1])
	assert.Equal(t, "Bob", rows[2][0])
}

func TestTemplateRoundTrip(t *testing.T) {
	data, err := Template()
	require.NoError(t, err)

	db := newFakeStore()
	result, err := newTestService(db).Import(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "Jane Doe", db.students["2024001"].DisplayName)
}
