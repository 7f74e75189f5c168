package handler

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/zoo-retail/internal/core/domain"
	"github.com/rl1809/zoo-retail/internal/core/service"
	"github.com/rl1809/zoo-retail/internal/port"
)

const CheckoutServiceName = "zoo.retail.v1.CheckoutService"

type OpenCartRequest struct{}

type CartRequest struct {
	CartID string `json:"cart_id"`
}

type ItemRequest struct {
	CartID   string `json:"cart_id"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity,omitempty"`
	Delta    int    `json:"delta,omitempty"`
}

type CartResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Cart    *service.CartView `json:"cart,omitempty"`
}

type CheckoutRPCResponse struct {
	Success       bool                  `json:"success"`
	Message       string                `json:"message"`
	Confirmation  *service.Confirmation `json:"confirmation,omitempty"`
	TransactionID string                `json:"transaction_id,omitempty"`
	FailedLines   []service.LineFailure `json:"failed_lines,omitempty"`
	Retryable     bool                  `json:"retryable"`
}

type RestockRPCRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type RestockRPCResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	StockCount int    `json:"stock_count"`
}

type checkoutServer interface {
	OpenCart(context.Context, *OpenCartRequest) (*CartResponse, error)
	GetCart(context.Context, *CartRequest) (*CartResponse, error)
	AddItem(context.Context, *ItemRequest) (*CartResponse, error)
	AdjustQuantity(context.Context, *ItemRequest) (*CartResponse, error)
	RemoveItem(context.Context, *ItemRequest) (*CartResponse, error)
	AbandonCart(context.Context, *CartRequest) (*CartResponse, error)
	Checkout(context.Context, *CartRequest) (*CheckoutRPCResponse, error)
	Restock(context.Context, *RestockRPCRequest) (*RestockRPCResponse, error)
}

// GRPCHandler serves the checkout service. Business failures travel in the
// response body; only authentication failures are gRPC status errors.
type GRPCHandler struct {
	carts    *service.CartService
	catalog  *service.CatalogService
	identity port.IdentityProvider
}

func NewGRPCHandler(carts *service.CartService, catalog *service.CatalogService, identity port.IdentityProvider) *GRPCHandler {
	return &GRPCHandler{carts: carts, catalog: catalog, identity: identity}
}

// Register attaches the handler to s.
func (h *GRPCHandler) Register(s *grpc.Server) {
	s.RegisterService(&checkoutServiceDesc, h)
}

var checkoutServiceDesc = grpc.ServiceDesc{
	ServiceName: CheckoutServiceName,
	HandlerType: (*checkoutServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("OpenCart", (*GRPCHandler).OpenCart),
		unary("GetCart", (*GRPCHandler).GetCart),
		unary("AddItem", (*GRPCHandler).AddItem),
		unary("AdjustQuantity", (*GRPCHandler).AdjustQuantity),
		unary("RemoveItem", (*GRPCHandler).RemoveItem),
		unary("AbandonCart", (*GRPCHandler).AbandonCart),
		unary("Checkout", (*GRPCHandler).Checkout),
		unary("Restock", (*GRPCHandler).Restock),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "zoo/retail/v1/checkout.proto",
}

func unary[Req, Resp any](name string, call func(*GRPCHandler, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			h := srv.(*GRPCHandler)
			if interceptor == nil {
				return call(h, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CheckoutServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(h, ctx, req.(*Req))
			})
		},
	}
}

func (h *GRPCHandler) authenticate(ctx context.Context) (domain.Identity, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 {
		return domain.Identity{}, status.Error(codes.Unauthenticated, "missing authorization metadata")
	}
	who, err := h.identity.Identify(ctx, strings.TrimSpace(values[0]))
	if err != nil {
		return domain.Identity{}, status.Error(codes.Unauthenticated, "invalid token")
	}
	return who, nil
}

func cartResult(view service.CartView, err error) (*CartResponse, error) {
	if err != nil {
		return &CartResponse{Success: false, Message: classify(err).Message}, nil
	}
	return &CartResponse{Success: true, Cart: &view}, nil
}

func (h *GRPCHandler) OpenCart(ctx context.Context, _ *OpenCartRequest) (*CartResponse, error) {
	who, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return cartResult(h.carts.Open(who), nil)
}

func (h *GRPCHandler) GetCart(ctx context.Context, req *CartRequest) (*CartResponse, error) {
	who, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return cartResult(h.carts.Get(who, req.CartID))
}

func (h *GRPCHandler) AddItem(ctx context.Context, req *ItemRequest) (*CartResponse, error) {
	who, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return cartResult(h.carts.AddItem(ctx, who, req.CartID, req.ItemID, req.Quantity))
}

func (h *GRPCHandler) AdjustQuantity(ctx context.Context, req *ItemRequest) (*CartResponse, error) {
	who, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return cartResult(h.carts.AdjustQuantity(who, req.CartID, req.ItemID, req.Delta))
}

func (h *GRPCHandler) RemoveItem(ctx context.Context, req *ItemRequest) (*CartResponse, error) {
	who, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return cartResult(h.carts.RemoveItem(who, req.CartID, req.ItemID))
}

func (h *GRPCHandler) AbandonCart(ctx context.Context, req *CartRequest) (*CartResponse, error) {
	who, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.carts.Abandon(who, req.CartID); err != nil {
		return &CartResponse{Success: false, Message: classify(err).Message}, nil
	}
	return &CartResponse{Success: true, Message: "cart abandoned"}, nil
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *CartRequest) (*CheckoutRPCResponse, error) {
	who, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	conf, err := h.carts.Checkout(ctx, who, req.CartID)
	if err != nil {
		f := classify(err)
		resp := &CheckoutRPCResponse{
			Success:       false,
			Message:       f.Message,
			TransactionID: f.TransactionID,
			FailedLines:   f.FailedLines,
		}
		if f.Retryable != nil {
			resp.Retryable = *f.Retryable
		}
		return resp, nil
	}

	return &CheckoutRPCResponse{
		Success:      true,
		Message:      "checkout complete",
		Confirmation: conf,
	}, nil
}

func (h *GRPCHandler) Restock(ctx context.Context, req *RestockRPCRequest) (*RestockRPCResponse, error) {
	who, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	count, err := h.catalog.Restock(ctx, who, req.ItemID, req.Quantity)
	if err != nil {
		return &RestockRPCResponse{Success: false, Message: classify(err).Message}, nil
	}
	return &RestockRPCResponse{Success: true, StockCount: count}, nil
}
