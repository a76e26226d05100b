package history_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/riceadvisor/riceadvisor/internal/history"
)

func newService(repo history.Repository, pub history.Publisher) *history.Service {
	return history.NewService(history.ServiceConfig{
		Repository: repo,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
	})
}

func sample(name, soil, irrigation, fert string, planted time.Time, yield, income float64) history.Record {
	return history.Record{
		FarmerName:     name,
		PlantingDate:   planted,
		LandArea:       1,
		SoilType:       soil,
		Terrain:        "Flat",
		Irrigation:     irrigation,
		FertilizerType: fert,
		SeedType:       "Normal",
		PreviousCrop:   "None",
		PredictedYield: yield,
		Income:         income,
		HarvestDate:    planted.AddDate(0, 0, 110),
	}
}

func seed(t *testing.T, svc *history.Service) {
	t.Helper()
	ctx := context.Background()
	for _, rec := range []history.Record{
		sample("Ravi", "Clay", "Flood", "Urea", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 5.1, 255000),
		sample("anita", "Loam", "Drip", "NPK", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 9.8, 490000),
		sample("Mohan", "Sandy", "Rain-fed", "None", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 1.4, 70000),
		sample("Bala", "Loam", "Flood", "DAP", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 5.1, 255000),
	} {
		_, err := svc.Record(ctx, rec)
		require.NoError(t, err)
	}
}

func names(records []*history.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.FarmerName)
	}
	return out
}

func TestService_Record(t *testing.T) {
	svc := newService(history.NewInMemoryRepository(), nil)

	rec, err := svc.Record(context.Background(), sample("Ravi", "Clay", "Flood", "Urea", time.Now(), 5, 1))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rec.ID, "hist_"))
	assert.Len(t, rec.ID, len("hist_")+22)
	assert.Equal(t, int64(1), rec.Sequence)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestService_ListInsertionOrder(t *testing.T) {
	svc := newService(history.NewInMemoryRepository(), nil)
	seed(t, svc)

	records, err := svc.List(context.Background(), history.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ravi", "anita", "Mohan", "Bala"}, names(records))
	for i, r := range records {
		assert.Equal(t, int64(i+1), r.Sequence)
	}
}

func TestService_ListSearch(t *testing.T) {
	svc := newService(history.NewInMemoryRepository(), nil)
	seed(t, svc)

	tests := []struct {
		search   string
		expected []string
	}{
		{"loam", []string{"anita", "Bala"}},
		{"FLOOD", []string{"Ravi", "Bala"}},
		{"npk", []string{"anita"}},
		{"moh", []string{"Mohan"}},
		{"  ", []string{"Ravi", "anita", "Mohan", "Bala"}},
		{"wheat", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			records, err := svc.List(context.Background(), history.Query{Search: tt.search})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, names(records))
		})
	}
}

func TestService_ListSort(t *testing.T) {
	svc := newService(history.NewInMemoryRepository(), nil)
	seed(t, svc)

	tests := []struct {
		sort     history.SortField
		expected []string
	}{
		{history.SortDate, []string{"anita", "Bala", "Ravi", "Mohan"}},
		{history.SortFarmerName, []string{"anita", "Bala", "Mohan", "Ravi"}},
		{history.SortYield, []string{"anita", "Ravi", "Bala", "Mohan"}},
		{history.SortIncome, []string{"anita", "Ravi", "Bala", "Mohan"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			records, err := svc.List(context.Background(), history.Query{SortBy: tt.sort})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, names(records))
		})
	}

	// Sorting never reorders the stored log.
	records, err := svc.List(context.Background(), history.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ravi", "anita", "Mohan", "Bala"}, names(records))
}

func TestParseSortField(t *testing.T) {
	tests := []struct {
		input    string
		expected history.SortField
		wantErr  bool
	}{
		{"", history.SortInsertion, false},
		{"date", history.SortDate, false},
		{"Farmer_Name", history.SortFarmerName, false},
		{"yield", history.SortYield, false},
		{"actual_yield", history.SortYield, false},
		{"income", history.SortIncome, false},
		{"area", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := history.ParseSortField(tt.input)
			if tt.wantErr {
				assert.True(t, errors.Is(err, history.ErrInvalidSort))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

type fakePublisher struct {
	mu      sync.Mutex
	records []*history.Record
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, rec *history.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.records = append(p.records, rec)
	return nil
}

func TestService_RecordPublishes(t *testing.T) {
	repo := history.NewInMemoryRepository()
	pub := &fakePublisher{}
	svc := newService(repo, pub)

	rec, err := svc.Record(context.Background(), sample("Ravi", "Clay", "Flood", "Urea", time.Now(), 5, 1))
	require.NoError(t, err)

	require.Len(t, pub.records, 1)
	assert.Equal(t, rec.ID, pub.records[0].ID)

	stored, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestService_RecordPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("topic unavailable")}
	svc := newService(history.NewInMemoryRepository(), pub)

	_, err := svc.Record(context.Background(), sample("Ravi", "Clay", "Flood", "Urea", time.Now(), 5, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic unavailable")
}

func TestInMemoryRepository_Duplicate(t *testing.T) {
	repo := history.NewInMemoryRepository()
	rec := &history.Record{ID: "hist_1"}

	require.NoError(t, repo.Append(context.Background(), rec))
	err := repo.Append(context.Background(), &history.Record{ID: "hist_1"})
	assert.True(t, errors.Is(err, history.ErrDuplicateRecord))
}

func TestInMemoryRepository_ConcurrentAppend(t *testing.T) {
	repo := history.NewInMemoryRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, repo.Append(ctx, &history.Record{ID: fmt.Sprintf("hist_%d", i)}))
		}(i)
	}

	// Readers running alongside appends always see a gap-free prefix.
	for i := 0; i < 20; i++ {
		records, err := repo.List(ctx)
		require.NoError(t, err)
		for j, r := range records {
			assert.Equal(t, int64(j+1), r.Sequence)
		}
	}
	wg.Wait()

	records, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 50)
}

func TestInMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := history.NewInMemoryRepository()
	require.NoError(t, repo.Append(context.Background(), &history.Record{ID: "hist_1", FarmerName: "Ravi"}))

	records, err := repo.List(context.Background())
	require.NoError(t, err)
	records[0].FarmerName = "changed"

	records, err = repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ravi", records[0].FarmerName)
}

func TestService_ExportXLSX(t *testing.T) {
	svc := newService(history.NewInMemoryRepository(), nil)
	seed(t, svc)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportXLSX(context.Background(), &buf, history.Query{Search: "loam", SortBy: history.SortFarmerName}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(history.ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "Farmer", rows[0][1])
	assert.Equal(t, "2024-03-01", rows[1][0])
	assert.Equal(t, "anita", rows[1][1])
	assert.Equal(t, "Bala", rows[2][1])
	assert.Equal(t, "DAP", rows[2][6])
}
