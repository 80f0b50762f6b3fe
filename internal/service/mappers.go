package service

import (
	"time"

	"brewpos/internal/availability"
	"brewpos/internal/cart"
	"brewpos/internal/checkout"
	"brewpos/internal/dto"
	"brewpos/internal/model"
	"brewpos/internal/pricing"
)

func productToResponse(p *model.Product, q *pricing.Quote) dto.ProductResponse {
	resp := dto.ProductResponse{
		ID:              p.ID.String(),
		Name:            p.Name,
		Category:        p.Category,
		Kind:            string(p.Kind),
		Sizes:           p.Sizes,
		PriceBySize:     p.PriceBySize,
		DiscountPercent: p.DiscountPercent,
		TotalCost:       p.TotalCost,
		ProfitMargin:    p.ProfitMargin,
		Active:          p.Active,
	}
	if q != nil {
		resp.PriceBySize = q.PriceBySize
		resp.OriginalPriceBySize = q.OriginalPriceBySize
		resp.TotalCost = q.TotalCost
		resp.ProfitMargin = q.ProfitMargin.Round(2)
	}
	for _, r := range p.Recipe {
		resp.Recipe = append(resp.Recipe, dto.RecipeLineResponse{
			IngredientID:   r.IngredientID.String(),
			IngredientName: r.IngredientName,
			Unit:           r.Unit,
			Quantity:       r.Quantity,
			UnitPrice:      r.UnitPrice,
		})
	}
	for _, c := range p.Components {
		resp.Components = append(resp.Components, dto.ComboComponentResponse{
			ProductID:   c.ProductID.String(),
			ProductName: c.ProductName,
			Size:        c.Size,
		})
	}
	return resp
}

func availabilityToResponse(r availability.Result) *dto.AvailabilityResponse {
	out := &dto.AvailabilityResponse{
		LimitingIngredient: r.LimitingIngredient,
		HasStock:           r.HasStock(),
	}
	if !r.Unconstrained {
		n := r.MaxProducible
		out.MaxProducible = &n
	}
	return out
}

func ingredientToResponse(i *model.Ingredient) dto.IngredientResponse {
	return dto.IngredientResponse{
		ID:           i.ID.String(),
		Name:         i.Name,
		Unit:         i.Unit,
		UnitPrice:    i.UnitPrice,
		Stock:        i.Stock,
		MinStock:     i.MinStock,
		BelowMinimum: i.BelowMinimum(),
	}
}

func movementToResponse(m *model.StockMovement) dto.StockMovementResponse {
	resp := dto.StockMovementResponse{
		ID:           m.ID.String(),
		IngredientID: m.IngredientID.String(),
		Kind:         m.Kind,
		Quantity:     m.Quantity,
		StockBefore:  m.StockBefore,
		StockAfter:   m.StockAfter,
		Reason:       m.Reason,
		CreatedAt:    m.CreatedAt.Format(time.RFC3339),
	}
	if m.Ingredient != nil {
		resp.IngredientName = m.Ingredient.Name
	}
	if m.ReferenceID != nil {
		ref := m.ReferenceID.String()
		resp.ReferenceID = &ref
	}
	return resp
}

func profileToResponse(p *model.PaymentProfile) dto.PaymentProfileResponse {
	return dto.PaymentProfileResponse{
		ID:            p.ID.String(),
		Name:          p.Name,
		BankID:        p.BankID,
		BankName:      p.BankName,
		AccountNumber: p.AccountNumber,
		AccountHolder: p.AccountHolder,
		Active:        p.Active,
	}
}

func invoiceToResponse(inv *model.Invoice) dto.InvoiceResponse {
	resp := dto.InvoiceResponse{
		ID:                 inv.ID.String(),
		Number:             inv.Number,
		Lines:              make([]dto.InvoiceLineResponse, 0, len(inv.Lines)),
		Consumption:        make([]dto.IngredientUsageResponse, 0, len(inv.Consumption)),
		TotalAmount:        inv.TotalAmount,
		TotalQuantity:      inv.TotalQuantity,
		PaymentMethod:      string(inv.PaymentMethod),
		PaymentProfileName: inv.PaymentProfileName,
		Status:             string(inv.Status),
		AllowNegativeStock: inv.AllowNegativeStock,
		CustomerEmail:      inv.CustomerEmail,
		CancelReason:       inv.CancelReason,
		CreatedAt:          inv.CreatedAt.Format(time.RFC3339),
	}
	for _, l := range inv.Lines {
		resp.Lines = append(resp.Lines, dto.InvoiceLineResponse{
			ProductID:   l.ProductID.String(),
			ProductName: l.ProductName,
			Size:        l.Size,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		})
	}
	for _, u := range inv.Usage() {
		resp.Consumption = append(resp.Consumption, dto.IngredientUsageResponse{
			IngredientID:   u.IngredientID.String(),
			IngredientName: u.IngredientName,
			Unit:           u.Unit,
			Quantity:       u.Quantity,
		})
	}
	if inv.CancelledAt != nil {
		at := inv.CancelledAt.Format(time.RFC3339)
		resp.CancelledAt = &at
	}
	return resp
}

func cartLineToResponse(l *cart.Line) dto.CartLineResponse {
	resp := dto.CartLineResponse{
		Key:                l.Key().String(),
		ProductID:          l.ProductID.String(),
		ProductName:        l.ProductName,
		Size:               l.Size,
		UnitPrice:          l.UnitPrice,
		Quantity:           l.Quantity,
		LineTotal:          l.Total(),
		HasStock:           l.HasStock,
		LimitingIngredient: l.LimitingIngredient,
	}
	if l.MaxQuantity != availability.Unlimited {
		n := l.MaxQuantity
		resp.MaxQuantity = &n
	}
	return resp
}

func sessionToResponse(s *checkout.Session) dto.SessionResponse {
	resp := dto.SessionResponse{
		ID:        s.ID.String(),
		State:     string(s.State),
		Items:     make([]dto.CartLineResponse, 0),
		Method:    string(s.Method),
		Payload:   s.Payload,
		LastError: s.LastError,
	}
	if s.Cart != nil {
		for _, l := range s.Cart.Lines() {
			resp.Items = append(resp.Items, cartLineToResponse(l))
		}
		resp.Total = s.Cart.Total()
		resp.ItemCount = s.Cart.ItemCount()
	}
	if s.Profile != nil {
		p := profileToResponse(s.Profile)
		resp.PaymentProfile = &p
	}
	if s.Saga != nil {
		resp.PendingSteps = s.Saga.Pending()
	}
	if s.LastInvoiceID != nil {
		id := s.LastInvoiceID.String()
		resp.LastInvoiceID = &id
	}
	return resp
}
