package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-wb/models"
)

func sampleProducts() []*models.Product {
	return []*models.Product{
		{
			ID:         "12345",
			Name:       "Ручка <гелевая> & синяя",
			Attributes: map[string]string{"Цвет": "синий", "Материал": "пластик"},
			Category:   "ручки",
			Price:      "129 ₽",
		},
		{
			ID:         "678",
			Name:       "Карандаш",
			Attributes: map[string]string{},
			Category:   "ручки",
			Price:      "15 ₽",
		},
	}
}

func TestJSONWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "ods_from_wb2.json")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}

	if err := writer.Write(sampleProducts()); err != nil {
		t.Fatalf("write json: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "Ручка <гелевая> & синяя") {
		t.Fatalf("unicode and html characters should be written unescaped:\n%s", text)
	}
	if !strings.Contains(text, "\n    {") {
		t.Fatalf("expected indented output:\n%s", text)
	}

	var decoded []models.Product
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Attributes["Цвет"] != "синий" {
		t.Fatalf("unexpected decoded products: %+v", decoded)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestJSONWriterOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write(sampleProducts()); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Write(nil); err != nil {
		t.Fatalf("write empty: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Fatalf("empty result set should be written as [], got %q", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestJSONWriterValidateRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := os.WriteFile(path, []byte(`{"not":"an array"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestCSVWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write(sampleProducts()); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records=%d, want 3", len(records))
	}
	if records[0][0] != "id" || records[0][4] != "attributes" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	var attrs map[string]string
	if err := json.Unmarshal([]byte(records[1][4]), &attrs); err != nil {
		t.Fatalf("attributes column is not json: %v", err)
	}
	if attrs["Материал"] != "пластик" {
		t.Fatalf("attributes = %v", attrs)
	}
}

func TestDualWriterWrite(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out.json")
	csvPath := filepath.Join(dir, "out.csv")

	writer, err := NewDualWriter(jsonPath, csvPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write(sampleProducts()); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate dual: %v", err)
	}

	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Fatalf("csv file missing or empty")
	}
	if info, err := os.Stat(jsonPath); err != nil || info.Size() == 0 {
		t.Fatalf("json file missing or empty")
	}
}
