package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/teamwear/storefront/internal/cart"
	"github.com/teamwear/storefront/internal/catalog"
	"github.com/teamwear/storefront/internal/checkout"
	"github.com/teamwear/storefront/internal/order"
	"github.com/teamwear/storefront/internal/payment"
	"github.com/teamwear/storefront/internal/payment/hosted"
	"github.com/teamwear/storefront/internal/pricing"
	"github.com/teamwear/storefront/internal/reconcile"
)

// signatureHeader carries the webhook signature on inbound payment events.
const signatureHeader = "Payment-Signature"

// maxWebhookBody bounds inbound event payloads.
const maxWebhookBody = 64 << 10

// maxCheckoutForm bounds the in-memory portion of a multipart checkout post.
const maxCheckoutForm = 1 << 20

// Handler serves the storefront's cart-to-paid-order pipeline.
type Handler struct {
	cart          *cart.Service
	checkout      *checkout.Coordinator
	reconcile     *reconcile.Service
	webhookSecret string
	thankYouURL   string
	catalogURL    string
}

func NewHandler(
	cartSvc *cart.Service,
	coordinator *checkout.Coordinator,
	reconciler *reconcile.Service,
	webhookSecret, thankYouURL, catalogURL string,
) *Handler {
	return &Handler{
		cart:          cartSvc,
		checkout:      coordinator,
		reconcile:     reconciler,
		webhookSecret: webhookSecret,
		thankYouURL:   thankYouURL,
		catalogURL:    catalogURL,
	}
}

// AddItem appends a line item to the session cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	item, err := h.cart.Add(r.Context(), sessionID(r.Context()), cart.AddRequest{
		ProductID:     req.ProductID,
		SizeCode:      req.SizeCode,
		Quantity:      req.Quantity,
		CategoryID:    req.CategoryID,
		Customization: req.Customization,
	})
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product_not_found", "")
		return
	case errors.Is(err, cart.ErrEmptyQuantity):
		writeError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at least 1")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "cart_error", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, lineItemResponse{
		ProductID:     item.ProductID,
		ProductName:   item.ProductName,
		SizeCode:      item.SizeCode,
		Quantity:      item.Quantity,
		ColorName:     item.ColorName,
		CategoryName:  item.CategoryName,
		Customization: item.Customization,
		DisplayPrice:  displayPrice(*item),
	})
}

// GetCart lists the session cart with advisory display pricing.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	items, err := h.cart.Items(r.Context(), sessionID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mapCartResponse(items))
}

// RemoveItem deletes the first line item matching product and size.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_product_id", "")
		return
	}
	size := chi.URLParam(r, "size")

	removed, err := h.cart.Remove(r.Context(), sessionID(r.Context()), productID, size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart_error", err.Error())
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "item_not_found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCart drops the session cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context(), sessionID(r.Context())); err != nil {
		writeError(w, http.StatusInternalServerError, "cart_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Checkout validates the cart, creates the pending order and hosted payment
// session, and redirects the browser to the processor.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCheckoutRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	url, err := h.checkout.Checkout(r.Context(), sessionID(r.Context()), req.CustomerName, req.CustomerEmail)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		// Stale or empty carts are not an error worth showing; back to the
		// catalog.
		http.Redirect(w, r, h.catalogURL, http.StatusSeeOther)
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "checkout failed", "error", err)
		writeError(w, http.StatusBadGateway, "checkout_failed", "")
		return
	}

	http.Redirect(w, r, url, http.StatusSeeOther)
}

// PaymentSuccess is the browser's return leg: resolve the session to an
// order and finalize it. The webhook may already have won the race; that is
// still a success as far as the customer is concerned.
func (h *Handler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	sid := r.URL.Query().Get("session_id")
	if sid == "" {
		writeError(w, http.StatusBadRequest, "session_id_required", "")
		return
	}

	_, err := h.reconcile.FinalizeBySession(r.Context(), sid)
	switch {
	case err == nil, errors.Is(err, order.ErrAlreadyFinalized):
		http.Redirect(w, r, h.thankYouURL, http.StatusSeeOther)
	case errors.Is(err, order.ErrNotFound), errors.Is(err, payment.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", "")
	default:
		slog.ErrorContext(r.Context(), "finalize failed", "session_id", sid, "error", err)
		writeError(w, http.StatusBadGateway, "finalize_failed", "")
	}
}

// PaymentCancel lands an abandoning customer back on the catalog, cart
// intact.
func (h *Handler) PaymentCancel(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.catalogURL, http.StatusSeeOther)
}

// PaymentWebhook is the processor's asynchronous confirmation channel.
//
// Anything short of a verified, processable event is answered with 400 so
// the processor's retry mechanism redelivers; only duplicate confirmations
// and successfully finalized orders get a 2xx.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable_body", "")
		return
	}

	event, err := hosted.ConstructEvent(payload, r.Header.Get(signatureHeader), h.webhookSecret)
	if err != nil {
		slog.WarnContext(r.Context(), "webhook rejected", "error", err)
		writeError(w, http.StatusBadRequest, "invalid_event", "")
		return
	}

	if event.Type != hosted.EventCheckoutCompleted {
		// Not ours to handle; acknowledge so it is not redelivered.
		w.WriteHeader(http.StatusOK)
		return
	}

	orderID := event.Data.Object.Metadata[payment.MetadataOrderID]
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "missing_order_id", "")
		return
	}

	_, err = h.reconcile.Finalize(r.Context(), orderID)
	switch {
	case err == nil, errors.Is(err, order.ErrAlreadyFinalized):
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusBadRequest, "unknown_order", "")
	default:
		writeError(w, http.StatusInternalServerError, "finalize_failed", "")
	}
}

// decodeCheckoutRequest accepts both a JSON body and a classic HTML form
// post, since the hosted-payment flow is driven by a plain browser form.
// Browsers send parameters alongside the media type (boundary, charset), so
// dispatch goes by the parsed media type, not the raw header.
func decodeCheckoutRequest(r *http.Request) (checkoutRequest, error) {
	var req checkoutRequest

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return req, err
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxCheckoutForm); err != nil {
			return req, err
		}
	default:
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}

	req.CustomerName = r.PostFormValue("customer_name")
	req.CustomerEmail = r.PostFormValue("customer_email")
	return req, nil
}

func displayPrice(item cart.LineItem) string {
	return pricing.Quote(item.UnitPrice, item.SizeCode, item.Customization != "").StringFixed(2)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}
