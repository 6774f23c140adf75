package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/WessleyAI/tourvec/engine/domain"
	"github.com/WessleyAI/tourvec/engine/semantic"
)

const header = "Name,Type,Address,Tel,City,Town,CreateDate,HostWords\n"

func validCSV() string {
	return header +
		"Old Cafe,Food,1 Main Rd,02-1234,Taipei,Daan,2024-03-01,Hand-drip coffee\n" +
		"Hill Temple,Culture,2 Hill Rd,06-5678,Tainan,West,2023-11-20,Quiet temple\n"
}

// fakeCollection records Add calls.
type fakeCollection struct {
	count    int
	countErr error
	addErr   error
	batches  [][]semantic.Record
}

func (f *fakeCollection) Count(context.Context) (int, error) { return f.count, f.countErr }
func (f *fakeCollection) Add(_ context.Context, recs []semantic.Record) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.batches = append(f.batches, recs)
	return nil
}

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "COA_OpenData.csv")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// --- ReadPlaces ---

func TestReadPlaces(t *testing.T) {
	places, err := ReadPlaces(strings.NewReader(validCSV()), "COA_OpenData.csv", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(places) != 2 {
		t.Fatalf("expected 2 places, got %d", len(places))
	}
	p := places[1]
	if p.ID != "1" || p.Name != "Hill Temple" || p.Category != "Culture" || p.Phone != "06-5678" {
		t.Fatalf("unexpected place: %+v", p)
	}
	if p.Description != "Quiet temple" || p.FileName != "COA_OpenData.csv" {
		t.Fatalf("unexpected place: %+v", p)
	}
	if want := time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC).Unix(); p.CreatedAt != want {
		t.Fatalf("created_at = %d, want %d", p.CreatedAt, want)
	}
}

func TestReadPlaces_InlineQuote(t *testing.T) {
	body := header + `Old Cafe,Food,1 Main Rd,02-1234,Taipei,Daan,2024-01-01,the "best" coffee` + "\n"
	places, err := ReadPlaces(strings.NewReader(body), "f.csv", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(places) != 1 || places[0].Description != `the "best" coffee` {
		t.Fatalf("unexpected places: %+v", places)
	}
}

func TestReadPlaces_KeepsFieldWhitespace(t *testing.T) {
	body := header + " Old Cafe ,Food,1 Main Rd,02-1234,Taipei,Daan, 2024-01-01 ,coffee\n"
	places, err := ReadPlaces(strings.NewReader(body), "f.csv", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if places[0].Name != " Old Cafe " {
		t.Fatalf("name = %q, want it unchanged", places[0].Name)
	}
	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix(); places[0].CreatedAt != want {
		t.Fatalf("created_at = %d, want %d", places[0].CreatedAt, want)
	}
}

func TestReadPlaces_ColumnOrderAndExtras(t *testing.T) {
	body := "\ufeffHostWords,Extra,CreateDate,Town,City,Tel,Address,Type,Name\n" +
		"desc,x,2024-01-02,Daan,Taipei,tel,addr,Food,Shop\n"
	places, err := ReadPlaces(strings.NewReader(body), "f.csv", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if places[0].Name != "Shop" || places[0].Description != "desc" || places[0].City != "Taipei" {
		t.Fatalf("columns mapped wrong: %+v", places[0])
	}
}

func TestReadPlaces_MissingColumns(t *testing.T) {
	_, err := ReadPlaces(strings.NewReader("Name,Type,City\nA,B,C\n"), "f.csv", time.UTC)
	var mc *domain.MissingColumnsError
	if !errors.As(err, &mc) {
		t.Fatalf("expected MissingColumnsError, got %v", err)
	}
	if strings.Join(mc.Columns, ",") != "Address,CreateDate,HostWords,Tel,Town" {
		t.Fatalf("missing = %v", mc.Columns)
	}
}

func TestReadPlaces_Empty(t *testing.T) {
	_, err := ReadPlaces(strings.NewReader(""), "f.csv", time.UTC)
	var mc *domain.MissingColumnsError
	if !errors.As(err, &mc) || len(mc.Columns) != len(domain.RequiredColumns) {
		t.Fatalf("expected every column missing, got %v", err)
	}
}

func TestReadPlaces_HeaderOnly(t *testing.T) {
	places, err := ReadPlaces(strings.NewReader(header), "f.csv", time.UTC)
	if err != nil || len(places) != 0 {
		t.Fatalf("got %v, %v", places, err)
	}
}

func TestReadPlaces_BadDate(t *testing.T) {
	body := validCSV() + "Shop,Food,a,b,Taipei,Daan,2024/01/02,desc\n"
	_, err := ReadPlaces(strings.NewReader(body), "f.csv", time.UTC)
	if !errors.Is(err, domain.ErrBadDate) {
		t.Fatalf("expected ErrBadDate, got %v", err)
	}
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Row != 2 {
		t.Fatalf("expected row 2, got %v", err)
	}
}

// --- Loader ---

func TestLoad_WritesAllRecords(t *testing.T) {
	coll := &fakeCollection{}
	res, err := NewLoader(coll, Options{Location: time.UTC}).Load(context.Background(), writeCSV(t, validCSV()))
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped || res.Count != 2 || res.Batches != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	rec := coll.batches[0][0]
	if rec.ID != "0" || rec.Document != "Hand-drip coffee" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Metadata[domain.KeyName] != "Old Cafe" || rec.Metadata[domain.KeyFileName] != "COA_OpenData.csv" {
		t.Fatalf("unexpected metadata: %v", rec.Metadata)
	}
	if _, ok := rec.Metadata[domain.KeyCreatedAt].(int64); !ok {
		t.Fatal("created_at must be stored as an integer")
	}
}

func TestLoad_Batches(t *testing.T) {
	var b strings.Builder
	b.WriteString(header)
	for i := 0; i < 250; i++ {
		b.WriteString("Shop,Food,a,b,Taipei,Daan,2024-01-02,desc\n")
	}
	coll := &fakeCollection{}
	res, err := NewLoader(coll, Options{}).Load(context.Background(), writeCSV(t, b.String()))
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 250 || len(coll.batches) != 3 || len(coll.batches[2]) != 50 {
		t.Fatalf("result %+v, %d batches", res, len(coll.batches))
	}
	if coll.batches[1][0].ID != "100" {
		t.Fatalf("second batch starts at %s", coll.batches[1][0].ID)
	}
}

func TestLoad_SkipsPopulatedCollection(t *testing.T) {
	coll := &fakeCollection{count: 7}
	res, err := NewLoader(coll, Options{}).Load(context.Background(), "does-not-exist.csv")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped || res.Count != 7 || len(coll.batches) != 0 {
		t.Fatalf("unexpected: %+v", res)
	}
}

func TestLoad_EmptyNameWritesNothing(t *testing.T) {
	body := validCSV() + ",Food,a,b,Taipei,Daan,2024-01-02,desc\n"
	coll := &fakeCollection{}
	_, err := NewLoader(coll, Options{}).Load(context.Background(), writeCSV(t, body))
	if !errors.Is(err, domain.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if len(coll.batches) != 0 {
		t.Fatal("no batch should be written when a row is invalid")
	}
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := NewLoader(&fakeCollection{countErr: errors.New("down")}, Options{}).Load(ctx, "x.csv"); err == nil {
		t.Fatal("expected count error")
	}
	if _, err := NewLoader(&fakeCollection{}, Options{}).Load(ctx, filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	addErr := errors.New("quota exceeded")
	_, err := NewLoader(&fakeCollection{addErr: addErr}, Options{}).Load(ctx, writeCSV(t, validCSV()))
	if !errors.Is(err, addErr) {
		t.Fatalf("expected provider error to be wrapped, got %v", err)
	}
}

func TestLoad_MemoryCollectionEndToEnd(t *testing.T) {
	ctx := context.Background()
	coll, err := semantic.Open(ctx, "TRAVEL", semantic.NewMemoryStore(), constEmbedder{}, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	l := NewLoader(coll, Options{Location: time.UTC})
	if _, err := l.Load(ctx, writeCSV(t, validCSV())); err != nil {
		t.Fatal(err)
	}
	res, err := l.Load(ctx, writeCSV(t, validCSV()))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped || res.Count != 2 {
		t.Fatalf("second load should be skipped: %+v", res)
	}
}

type constEmbedder struct{}

func (constEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}
