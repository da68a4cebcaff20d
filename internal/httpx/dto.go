package httpx

import "github.com/teamwear/storefront/internal/cart"

type addItemRequest struct {
	ProductID     int64  `json:"product_id"`
	SizeCode      string `json:"size_code"`
	Quantity      int    `json:"quantity"`
	CategoryID    int64  `json:"category_id,omitempty"`
	Customization string `json:"customization,omitempty"`
}

type lineItemResponse struct {
	ProductID     int64  `json:"product_id"`
	ProductName   string `json:"product_name"`
	SizeCode      string `json:"size_code"`
	Quantity      int    `json:"quantity"`
	ColorName     string `json:"color_name,omitempty"`
	CategoryName  string `json:"category_name,omitempty"`
	Customization string `json:"customization,omitempty"`

	// DisplayPrice includes derived surcharges and is advisory only; the
	// charge is recomputed at checkout.
	DisplayPrice string `json:"display_price"`
}

type cartResponse struct {
	Items []lineItemResponse `json:"items"`
	Total string             `json:"total"`
}

type checkoutRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapCartResponse(items []cart.LineItem) cartResponse {
	out := cartResponse{
		Items: make([]lineItemResponse, len(items)),
		Total: cart.DisplayTotal(items).StringFixed(2),
	}
	for i, item := range items {
		out.Items[i] = lineItemResponse{
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			SizeCode:      item.SizeCode,
			Quantity:      item.Quantity,
			ColorName:     item.ColorName,
			CategoryName:  item.CategoryName,
			Customization: item.Customization,
			DisplayPrice:  displayPrice(item),
		}
	}
	return out
}
