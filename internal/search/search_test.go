package search

import (
	"context"
	"fmt"
	"testing"

	"campus_market/internal/testutil"
	"campus_market/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titles(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Product.Title
	}
	return out
}

func TestIndexSearch(t *testing.T) {
	ix := NewIndex()
	ix.Rebuild([]models.Product{
		{ID: 1, Title: "Calculus Textbook", Category: "books"},
		{ID: 2, Title: "Desk Lamp", Category: "dorm"},
		{ID: 3, Title: "Graphing Calculator", Category: "electronics"},
	})

	got := titles(ix.Search("calc"))
	assert.ElementsMatch(t, []string{"Calculus Textbook", "Graphing Calculator"}, got)

	assert.Equal(t, []string{"Desk Lamp"}, titles(ix.Search("LAMP")))
	assert.Empty(t, ix.Search("   "))
	assert.Empty(t, ix.Search("zzz"))
}

func TestIndexThreshold(t *testing.T) {
	ix := NewIndex()
	ix.Rebuild([]models.Product{{ID: 1, Title: "a very long boring title", Category: "x"}})

	// "ax" matches but its characters are far apart.
	assert.Empty(t, ix.Search("ax"))
	results := ix.Search("very")
	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].Similarity)
}

func TestIndexCapsResults(t *testing.T) {
	products := make([]models.Product, 0, 25)
	for i := 0; i < 25; i++ {
		products = append(products, models.Product{ID: uint(i + 1), Title: fmt.Sprintf("notebook %d", i)})
	}
	ix := NewIndex()
	ix.Rebuild(products)
	assert.Len(t, ix.Search("notebook"), MaxResults)
}

func TestServiceRebuildsAfterInvalidate(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	seller := testutil.CreateUser(t, db, models.RoleUser, true)
	lamp := testutil.CreateProduct(t, db, seller.ID, "5.00", testutil.IntPtr(1))
	require.NoError(t, db.Model(lamp).Update("title", "Desk Lamp").Error)

	svc := NewService(db, nil)
	results, err := svc.Search(ctx, "lamp")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	hidden := testutil.CreateProduct(t, db, seller.ID, "5.00", testutil.IntPtr(1))
	require.NoError(t, db.Model(hidden).Updates(map[string]interface{}{"title": "Floor Lamp", "status": models.ProductPending}).Error)
	second := testutil.CreateProduct(t, db, seller.ID, "5.00", testutil.IntPtr(1))
	require.NoError(t, db.Model(second).Update("title", "Reading Lamp").Error)

	// Still the cached catalog until invalidated.
	results, err = svc.Search(ctx, "lamp")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	svc.Invalidate()
	results, err = svc.Search(ctx, "lamp")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Desk Lamp", "Reading Lamp"}, titles(results))
}
