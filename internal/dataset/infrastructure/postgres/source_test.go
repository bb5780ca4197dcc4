package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dataset "flexmarket-report/internal/dataset/domain"
	"flexmarket-report/internal/table"
)

func describe(t *testing.T, name dataset.Name) dataset.Descriptor {
	t.Helper()
	d, err := dataset.Describe(name)
	require.NoError(t, err)
	return d
}

func newMock(t *testing.T) (*Source, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSource(db), mock
}

func TestSQLSelectsSchemaColumns(t *testing.T) {
	stmt, err := SQL(describe(t, dataset.MIP))
	require.NoError(t, err)
	assert.Equal(t, "SELECT settlement_date, settlement_period, price, data_provider\n"+
		"FROM market_index_prices\n"+
		"WHERE settlement_date >= $1 AND settlement_date < $2\n"+
		"ORDER BY settlement_date, settlement_period", stmt)

	stmt, err = SQL(describe(t, dataset.NGU))
	require.NoError(t, err)
	assert.NotContains(t, stmt, "WHERE")

	_, err = SQL(describe(t, dataset.DemandForecastDA))
	assert.ErrorIs(t, err, dataset.ErrUnknownDataset)
}

func TestFetchRangedDataset(t *testing.T) {
	src, mock := newMock(t)
	d := describe(t, dataset.MIP)
	stmt, err := SQL(d)
	require.NoError(t, err)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(stmt).
		WithArgs(day, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"settlement_date", "settlement_period", "price", "data_provider"}).
			AddRow(day, int64(1), 65.2, "APXMIDP").
			AddRow(day, int64(2), nil, []byte("N2EXMIDP")))

	rng, err := dataset.NewRange(civil.Date{Year: 2024, Month: 1, Day: 1}, civil.Date{Year: 2024, Month: 1, Day: 31})
	require.NoError(t, err)
	got, err := src.Fetch(context.Background(), d, rng)
	require.NoError(t, err)

	assert.Equal(t, d.Headers(), got.Columns())
	require.Equal(t, 2, got.Len())
	assert.Equal(t, table.Time(day), got.Get(0, dataset.ColDate))
	assert.Equal(t, table.Num(65.2), got.Get(0, dataset.ColMIPPrice))
	assert.True(t, got.Get(1, dataset.ColMIPPrice).IsNull())
	assert.Equal(t, "N2EXMIDP", got.Get(1, dataset.ColDescription).Text())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchPadsUpperBound(t *testing.T) {
	src, mock := newMock(t)
	d := describe(t, dataset.STOR)
	stmt, err := SQL(d)
	require.NoError(t, err)

	mock.ExpectQuery(stmt).
		WithArgs(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows(sourceColumns(d)))

	rng := dataset.Range{From: civil.Date{Year: 2024, Month: 1, Day: 1}, To: civil.Date{Year: 2024, Month: 1, Day: 1}}
	got, err := src.Fetch(context.Background(), d, rng)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchReferenceIgnoresRange(t *testing.T) {
	src, mock := newMock(t)
	d := describe(t, dataset.NGU)
	stmt, err := SQL(d)
	require.NoError(t, err)

	mock.ExpectQuery(stmt).
		WillReturnRows(sqlmock.NewRows(sourceColumns(d)).AddRow("NGU1", "Acme", "BM", "Battery"))

	got, err := src.Fetch(context.Background(), d, dataset.Range{})
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Get(0, dataset.ColCompany).Text())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchDetectsSchemaDrift(t *testing.T) {
	src, mock := newMock(t)
	d := describe(t, dataset.NGU)
	stmt, err := SQL(d)
	require.NoError(t, err)

	mock.ExpectQuery(stmt).
		WillReturnRows(sqlmock.NewRows([]string{"ngu_id", "company", "bm_nbm", "fuel_type"}))

	_, err = src.Fetch(context.Background(), d, dataset.Range{})
	assert.True(t, errors.Is(err, dataset.ErrSchemaDrift), "got %v", err)
}

func TestFetchWrapsQueryError(t *testing.T) {
	src, mock := newMock(t)
	d := describe(t, dataset.NGU)
	stmt, err := SQL(d)
	require.NoError(t, err)

	boom := errors.New("connection reset")
	mock.ExpectQuery(stmt).WillReturnError(boom)

	_, err = src.Fetch(context.Background(), d, dataset.Range{})
	assert.ErrorIs(t, err, boom)
}

func sourceColumns(d dataset.Descriptor) []string {
	out := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		out[i] = f.Source
	}
	return out
}
