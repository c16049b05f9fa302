package sales_test

import (
	"context"
	"testing"

	apppricing "github.com/printshop/backend/internal/application/pricing"
	appsales "github.com/printshop/backend/internal/application/sales"
	"github.com/printshop/backend/internal/domain/catalog"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/printshop/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotationService_Convert_KeepsOverrides(t *testing.T) {
	for _, reprice := range []bool{false, true} {
		t.Run(map[bool]string{false: "quoted prices", true: "repriced"}[reprice], func(t *testing.T) {
			s := testutil.NewStack(t)
			ctx := context.Background()
			flyer := s.SeedFixedProduct(t, "FLY-A5", catalog.ProductTypeInventory, "10.00")
			poster := s.SeedFixedProduct(t, "PST-A2", catalog.ProductTypeInventory, "4.00")

			overridden := testutil.Line(flyer.ID, 2)
			overridden.Override = &apppricing.OverrideInput{UnitPrice: testutil.Dec("7.00"), Reason: "loyal customer"}
			q, err := s.Quotations.CreateQuotation(ctx, testutil.ClerkID, appsales.CreateQuotationRequest{
				Items: []apppricing.LineInput{overridden, testutil.Line(poster.ID, 1)},
			})
			require.NoError(t, err)
			require.True(t, testutil.Dec("18").Equal(q.Subtotal), q.Subtotal.String())

			order, err := s.Quotations.ConvertQuotation(ctx, q.ID, testutil.ClerkID, appsales.ConvertQuotationRequest{Reprice: reprice})
			require.NoError(t, err)
			require.Len(t, order.Items, 2)

			line := order.Items[0]
			assert.True(t, testutil.Dec("7").Equal(line.UnitPrice), line.UnitPrice.String())
			assert.True(t, testutil.Dec("14").Equal(line.LineTotal), line.LineTotal.String())
			assert.Equal(t, "loyal customer", line.OverrideReason)
			assert.True(t, testutil.Dec("4").Equal(order.Items[1].UnitPrice))
			assert.Empty(t, order.Items[1].OverrideReason)
			assert.True(t, testutil.Dec("18").Equal(order.Subtotal), order.Subtotal.String())
			require.NotNil(t, order.QuotationID)
			assert.Equal(t, q.ID, *order.QuotationID)
		})
	}
}

func TestQuotationService_Convert_InactiveProductRollsBack(t *testing.T) {
	for _, reprice := range []bool{false, true} {
		t.Run(map[bool]string{false: "quoted prices", true: "repriced"}[reprice], func(t *testing.T) {
			s := testutil.NewStack(t)
			ctx := context.Background()
			flyer := s.SeedFixedProduct(t, "FLY-A5", catalog.ProductTypeInventory, "10.00")
			poster := s.SeedFixedProduct(t, "PST-A2", catalog.ProductTypeInventory, "4.00")

			q, err := s.Quotations.CreateQuotation(ctx, testutil.ClerkID, appsales.CreateQuotationRequest{
				Items: []apppricing.LineInput{testutil.Line(flyer.ID, 3), testutil.Line(poster.ID, 1)},
			})
			require.NoError(t, err)
			require.NoError(t, s.DB.DB.Model(&catalog.Product{}).
				Where("id = ?", poster.ID).Update("is_active", false).Error)

			_, err = s.Quotations.ConvertQuotation(ctx, q.ID, testutil.ClerkID, appsales.ConvertQuotationRequest{Reprice: reprice})
			assert.ErrorIs(t, err, &shared.DomainError{Code: "PRODUCT_INACTIVE"})

			var orders, items int64
			require.NoError(t, s.DB.DB.Model(&sales.Order{}).Count(&orders).Error)
			require.NoError(t, s.DB.DB.Model(&sales.OrderItem{}).Count(&items).Error)
			assert.Zero(t, orders)
			assert.Zero(t, items)

			again, err := s.Quotations.GetQuotation(ctx, q.ID)
			require.NoError(t, err)
			assert.NotEqual(t, sales.QuotationStatusConverted, again.Status)
			assert.Nil(t, again.ConvertedOrderID)
		})
	}
}
