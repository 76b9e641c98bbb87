package application_test

import (
	"context"
	"testing"

	"github.com/dmehra2102/myshop/internal/inventory/application"
	"github.com/dmehra2102/myshop/internal/inventory/domain"
	"github.com/dmehra2102/myshop/internal/inventory/infrastructure/memory"
	"github.com/dmehra2102/myshop/pkg/logging"
	"github.com/dmehra2102/myshop/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogSeedAndList(t *testing.T) {
	ctx := context.Background()
	products := repository.NewMemory[domain.Product]()
	ledger := memory.NewLedger()
	catalog := application.NewCatalog(logging.Discard(), products, ledger)

	require.NoError(t, catalog.Seed(ctx, domain.DemoProducts()))

	stock, known, err := ledger.GetStock(ctx, domain.DemoCameraID)
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, 12, stock)

	_, ok, err := ledger.TryReserve(ctx, domain.DemoCameraID, 2)
	require.NoError(t, err)
	require.True(t, ok)

	listed, err := catalog.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "Camera", listed[0].Name)
	assert.Equal(t, 10, listed[0].Stock, "stock comes from the ledger, not the snapshot")
}

func TestCatalogSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	products := repository.NewMemory[domain.Product]()
	ledger := memory.NewLedger()
	catalog := application.NewCatalog(logging.Discard(), products, ledger)
	seed := domain.DemoProducts()

	require.NoError(t, catalog.Seed(ctx, seed))
	_, _, err := ledger.TryReserve(ctx, seed[1].ID, 1)
	require.NoError(t, err)

	require.NoError(t, catalog.Seed(ctx, seed))

	all, err := products.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	stock, _, err := ledger.GetStock(ctx, seed[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stock, "reseeding must not reset a live counter")
}
