package invoice

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Skotchmaster/storefront/internal/models"
)

func sampleOrder() *models.Order {
	return &models.Order{
		ID:        12,
		UserEmail: "buyer@test.io",
		Items: []models.OrderItem{
			{Quantity: 2, Product: models.ProductSnapshot{ProductID: 1, Title: "A", Price: decimal.NewFromInt(10)}},
			{Quantity: 1, Product: models.ProductSnapshot{ProductID: 2, Title: "B", Price: decimal.RequireFromString("3.5")}},
		},
	}
}

func TestLinesAndTotal(t *testing.T) {
	o := sampleOrder()

	assert.Equal(t, []string{"A - 2 x $10.00", "B - 1 x $3.50"}, Lines(o))
	assert.Equal(t, "Total Price: $23.50", TotalLine(o))
	assert.Equal(t, "invoice-12.pdf", Name(o.ID))
}

func TestRenderProducesPDF(t *testing.T) {
	data, err := Render(sampleOrder())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	empty, err := Render(&models.Order{ID: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, empty)
}

func TestFileStoreOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "invoices")
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Open(ctx, "invoice-1.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "invoice-1.pdf", []byte("first")))
	require.NoError(t, s.Save(ctx, "invoice-1.pdf", []byte("second")))

	got, err := s.Open(ctx, "invoice-1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestGridFSStoreIntegration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer client.Disconnect(context.Background())

	db := client.Database("storefront_test")
	defer db.Drop(context.Background())

	s, err := NewGridFSStore(db, "invoices")
	require.NoError(t, err)

	_, err = s.Open(ctx, "invoice-9.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "invoice-9.pdf", []byte("v1")))
	require.NoError(t, s.Save(ctx, "invoice-9.pdf", []byte("v2")))

	got, err := s.Open(ctx, "invoice-9.pdf")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))

	ids, err := s.fileIDs(ctx, "invoice-9.pdf")
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}
